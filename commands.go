package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	devcli "github.com/devtoolshub/devtools-hub/internal/cli"
	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/devtoolshub/devtools-hub/internal/config"
	"github.com/devtoolshub/devtools-hub/internal/qr"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const cliMode = "cli"

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output-format",
		Aliases: []string{"o"},
		Value:   string(devcli.OutputText),
		Usage:   "Output format (text or json)",
		Sources: cli.EnvVars("DEVTOOLS_OUTPUT_FORMAT"),
	}
}

// newRunner loads the config, prepares shared resources and returns a runner for a
// subcommand
func newRunner(cmd *cli.Command, logger *logrus.Logger) (*devcli.Runner, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	output, err := devcli.ParseOutputFormat(cmd.String("output-format"))
	if err != nil {
		return nil, nil, err
	}
	initShared(cliMode, cfg, logger)
	return devcli.NewRunner(logger, registry.GetCache(), output), cfg, nil
}

func convertCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Detect the input format and convert it",
		ArgsUsage: "[input]",
		Flags: []cli.Flag{
			outputFlag(),
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Value:   codec.ModeAuto.String(),
				Usage:   "Direction (auto, encode or decode)",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "Skip detection and use this format (json, php, xml, base64, morse, jwt)",
			},
			&cli.IntFlag{
				Name:  "indent",
				Usage: "JSON indent width (default from config)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read input from this file",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Convert --file again every time it changes",
			},
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "Copy the output to the clipboard",
			},
			&cli.StringFlag{
				Name:  "audio",
				Usage: "Write Morse code as a WAV file to this path",
			},
			&cli.IntFlag{
				Name:  "wpm",
				Usage: "Morse audio speed in words per minute (default from config)",
			},
			&cli.FloatFlag{
				Name:  "frequency",
				Usage: "Morse audio tone in Hz (default from config)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runner, cfg, err := newRunner(cmd, logger)
			if err != nil {
				return err
			}

			mode, err := codec.ParseMode(cmd.String("mode"))
			if err != nil {
				return err
			}
			target, err := codec.ParseFormat(cmd.String("target"))
			if err != nil {
				return err
			}

			opts := devcli.ConvertOptions{
				Mode:      mode,
				Target:    target,
				Indent:    cfg.JSON.Indent,
				Copy:      cmd.Bool("copy"),
				AudioPath: cmd.String("audio"),
				WPM:       cfg.Morse.WPM,
				Frequency: cfg.Morse.Frequency,
			}
			if cmd.IsSet("indent") {
				opts.Indent = cmd.Int("indent")
			}
			if cmd.IsSet("wpm") {
				opts.WPM = cmd.Int("wpm")
			}
			if cmd.IsSet("frequency") {
				opts.Frequency = cmd.Float("frequency")
			}

			if cmd.Bool("watch") {
				file := cmd.String("file")
				if file == "" {
					return errors.New("--watch needs --file")
				}
				return runner.Watch(ctx, file, opts)
			}

			input, err := devcli.ReadInput(cmd.Args().First(), cmd.String("file"), os.Stdin)
			if err != nil {
				return err
			}
			return runner.Convert(ctx, input, opts)
		},
	}
}

func detectCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Print the detected format of the input",
		ArgsUsage: "[input]",
		Flags: []cli.Flag{
			outputFlag(),
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read input from this file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runner, _, err := newRunner(cmd, logger)
			if err != nil {
				return err
			}
			input, err := devcli.ReadInput(cmd.Args().First(), cmd.String("file"), os.Stdin)
			if err != nil {
				return err
			}
			return runner.Detect(input)
		},
	}
}

func qrCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "qr",
		Usage:     "Render text as a QR code",
		ArgsUsage: "text",
		Flags: []cli.Flag{
			outputFlag(),
			&cli.StringFlag{
				Name:  "ecc",
				Usage: "Error correction level (L, M, Q or H; default from config)",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "Image size in pixels (default from config)",
			},
			&cli.IntFlag{
				Name:  "margin",
				Usage: "Quiet zone in modules (default from config)",
			},
			&cli.StringFlag{
				Name:  "style",
				Usage: "Colour preset (mono, neo, glass or candy; default from config)",
			},
			&cli.StringFlag{
				Name:  "fg",
				Usage: "Foreground colour as #RRGGBB, overriding the style",
			},
			&cli.StringFlag{
				Name:  "bg",
				Usage: "Background colour as #RRGGBB, overriding the style",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "png, jpeg, svg, terminal or data-url (default: terminal, or from --output's extension)",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Write the image to this file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runner, cfg, err := newRunner(cmd, logger)
			if err != nil {
				return err
			}

			text, err := devcli.ReadInput(cmd.Args().First(), "", os.Stdin)
			if err != nil {
				return err
			}

			opts := qrDefaults(cfg)
			opts.Text = strings.TrimSpace(text)
			if cmd.IsSet("ecc") {
				opts.Level = cmd.String("ecc")
			}
			if cmd.IsSet("size") {
				opts.Size = cmd.Int("size")
			}
			if cmd.IsSet("margin") {
				margin := cmd.Int("margin")
				opts.Margin = &margin
			}
			if cmd.IsSet("style") {
				opts.Style = cmd.String("style")
			}
			opts.Foreground = cmd.String("fg")
			opts.Background = cmd.String("bg")

			output := cmd.String("output")
			format := cmd.String("format")
			if format == "" {
				format = formatForPath(output)
			}
			if opts.Format, err = qr.ParseFormat(format); err != nil {
				return err
			}

			return runner.QR(ctx, qr.NewRenderer(registry.GetCache(), logger), opts, output)
		},
	}
}

// formatForPath picks an image format from a file extension; no path means the
// terminal
func formatForPath(path string) string {
	if path == "" {
		return string(qr.FormatTerminal)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return string(qr.FormatSVG)
	case ".jpg", ".jpeg":
		return string(qr.FormatJPEG)
	case ".txt":
		return string(qr.FormatTerminal)
	default:
		return string(qr.FormatPNG)
	}
}

func historyCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List or clear your saved conversions",
		Flags: []cli.Flag{
			outputFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Maximum number of records to list",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Delete every saved conversion of the current user",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runner, cfg, err := newRunner(cmd, logger)
			if err != nil {
				return err
			}
			resolver, err := newResolver(cfg, logger)
			if err != nil {
				return err
			}
			// Reading history does not depend on whether new conversions are saved
			recorder, err := openHistory(cfg, logger)
			if err != nil {
				return err
			}

			ctx = resolver.Static(ctx)
			if cmd.Bool("clear") {
				return runner.ClearHistory(ctx, recorder)
			}
			return runner.History(ctx, recorder, cmd.Int("limit"))
		},
	}
}

func sitemapCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "sitemap",
		Usage: "Print the XML sitemap of the tool pages",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runner, cfg, err := newRunner(cmd, logger)
			if err != nil {
				return err
			}
			return runner.Sitemap(cfg.Server.SiteURL, time.Now())
		},
	}
}

func configValidateCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "config-validate",
		Usage: "Check the config file and print a summary",
		Flags: []cli.Flag{outputFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			output, err := devcli.ParseOutputFormat(cmd.String("output-format"))
			if err != nil {
				return err
			}
			configureLogging(logger, cliMode)
			return devcli.NewRunner(logger, nil, output).ValidateConfig(cmd.String("config"))
		},
	}
}

func toolsCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "Run MCP tools directly from the command line",
		Flags: []cli.Flag{outputFlag()},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the enabled tools",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					runner, _, err := newRunner(cmd, logger)
					if err != nil {
						return err
					}
					return runner.ListTools()
				},
			},
			{
				Name:      "help",
				Usage:     "Show a tool's parameters",
				ArgsUsage: "tool",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					runner, _, err := newRunner(cmd, logger)
					if err != nil {
						return err
					}
					if cmd.Args().Len() == 0 {
						return errors.New("usage: devtools-hub tools help <tool>")
					}
					return runner.HelpTool(cmd.Args().First())
				},
			},
			{
				Name:            "run",
				Usage:           "Run a tool with --key=value flags or a JSON object",
				ArgsUsage:       "tool [--key=value ...] ['{\"key\": \"value\"}']",
				SkipFlagParsing: true,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					runner, _, err := newRunner(cmd, logger)
					if err != nil {
						return err
					}
					args := cmd.Args().Slice()
					if len(args) == 0 {
						return fmt.Errorf("usage: devtools-hub tools run <tool> [--key=value ...]")
					}
					return runner.RunTool(ctx, args[0], args[1:])
				},
			},
		},
	}
}
