package main

import (
	"fmt"
	"strconv"

	"DAQ-Lab/DLPIO8/internal/commander"
	"DAQ-Lab/DLPIO8/internal/config"
	"DAQ-Lab/DLPIO8/internal/dlpSerial"
	"DAQ-Lab/DLPIO8/internal/logger"
	"DAQ-Lab/DLPIO8/internal/sampler"
	"DAQ-Lab/DLPIO8/internal/terminal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := dlpSerial.ListDetailedPorts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ports) == 0 {
			fmt.Fprintln(out, "No serial ports found")
			return nil
		}
		for _, p := range ports {
			if p.IsUSB {
				fmt.Fprintf(out, "%s\tUSB %s:%s\tserial=%s\t%s\n", p.Name, p.VID, p.PID, p.SerialNumber, p.Product)
			} else {
				fmt.Fprintln(out, p.Name)
			}
		}
		return nil
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live channel monitor in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return errors.Wrap(err, "invalid config")
		}
		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		log, err := logger.NewFileLogger(cfg.Log.File, level)
		if err != nil {
			return err
		}
		defer log.Sync()

		connector := func(port string) (terminal.Device, error) {
			session := newSession(cfg, log)
			if err := handshake(session, cfg, port); err != nil {
				return nil, err
			}
			return session, nil
		}

		return terminal.StartApplication(dlpSerial.ListPorts, connector, sampler.Period(cfg.Sampling.RateHz), log)
	},
}

var voltsCmd = &cobra.Command{
	Use:   "volts <channel>",
	Short: "Read one channel voltage",
	Args:  cobra.ExactArgs(1),
	RunE: withChannel(func(cmd *cobra.Command, session *commander.Session, channel int, args []string) error {
		volts, err := session.GetVoltage(channel)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "CH%d %.3fV\n", channel, volts)
		return nil
	}),
}

var tempCmd = &cobra.Command{
	Use:   "temp <channel>",
	Short: "Read one channel temperature sensor (raw count)",
	Args:  cobra.ExactArgs(1),
	RunE: withChannel(func(cmd *cobra.Command, session *commander.Session, channel int, args []string) error {
		count, err := session.GetTemperature(channel)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "CH%d %d\n", channel, count)
		return nil
	}),
}

var dinCmd = &cobra.Command{
	Use:   "din <channel>",
	Short: "Read one digital input",
	Args:  cobra.ExactArgs(1),
	RunE: withChannel(func(cmd *cobra.Command, session *commander.Session, channel int, args []string) error {
		value, err := session.GetDigitalInput(channel)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "CH%d %d\n", channel, value)
		return nil
	}),
}

var doutCmd = &cobra.Command{
	Use:   "dout <channel> <0|1>",
	Short: "Drive one digital output low or high",
	Args:  cobra.ExactArgs(2),
	RunE: withChannel(func(cmd *cobra.Command, session *commander.Session, channel int, args []string) error {
		level, err := strconv.Atoi(args[1])
		if err != nil || (level != commander.LEVEL_LOW && level != commander.LEVEL_HIGH) {
			return errors.Errorf("invalid level %q, want 0 or 1", args[1])
		}
		return session.SetDigitalOutput(channel, level)
	}),
}

func init() {
	rootCmd.AddCommand(portsCmd, monitorCmd, voltsCmd, tempCmd, dinCmd, doutCmd)
}

type channelRunner func(cmd *cobra.Command, session *commander.Session, channel int, args []string) error

// withChannel parses the channel argument, runs the handshake, then always disconnects
func withChannel(run channelRunner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		channel, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Errorf("invalid channel %q", args[0])
		}

		session, log, err := connect()
		if err != nil {
			return err
		}
		defer log.Sync()
		defer func() {
			err = multierr.Append(err, session.Disconnect())
		}()

		if err := run(cmd, session, channel, args); err != nil {
			log.Error("Command failed", zap.String("command", cmd.Name()), zap.Int("channel", channel), zap.Error(err))
			return err
		}
		return nil
	}
}
