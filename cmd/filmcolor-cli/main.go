package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"yashubustudio/filmcolor/filmcolor"
)

type cliOptions struct {
	configPath string
	writeConf  bool
	command    string
	substrate  string
	background string
	foreground string
	thickness  string
	image      string
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("filmcolor-cli: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("filmcolor-cli: %v", err)
	}
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [options] entry|map|remap|show [command options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(out, "  entry  -substrate S -bg R,G,B -fg R,G,B -thickness NM [-image FILE]")
		fmt.Fprintln(out, "  map    -substrate S -bg R,G,B -fg R,G,B [-image FILE]")
		fmt.Fprintln(out, "  remap")
		fmt.Fprintln(out, "  show   -substrate S")
		fmt.Fprintln(out)
		fs.PrintDefaults()
	}
}

func parseArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	global := flag.NewFlagSet("filmcolor-cli", flag.ContinueOnError)
	global.StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	global.BoolVar(&opts.writeConf, "write-config", false, "Write the effective configuration back to the config file")
	global.Usage = usage(global)
	if err := global.Parse(args); err != nil {
		return opts, err
	}
	rest := global.Args()
	if len(rest) == 0 {
		if opts.writeConf {
			return opts, nil
		}
		global.Usage()
		return opts, errors.New("missing command")
	}
	opts.command = rest[0]

	cmd := flag.NewFlagSet(opts.command, flag.ContinueOnError)
	switch opts.command {
	case "entry", "map":
		cmd.StringVar(&opts.substrate, "substrate", "", "Substrate name (one of the configured substrates)")
		cmd.StringVar(&opts.background, "bg", "", "Background RGB as R,G,B (0-255)")
		cmd.StringVar(&opts.foreground, "fg", "", "Film RGB as R,G,B (0-255)")
		cmd.StringVar(&opts.image, "image", "", "Image the sample was taken from (default: manual entry)")
		if opts.command == "entry" {
			cmd.StringVar(&opts.thickness, "thickness", "", "Film thickness in nm")
		}
	case "show":
		cmd.StringVar(&opts.substrate, "substrate", "", "Substrate name")
	case "remap":
	default:
		global.Usage()
		return opts, fmt.Errorf("unknown command %q", opts.command)
	}
	if err := cmd.Parse(rest[1:]); err != nil {
		return opts, err
	}

	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.substrate = strings.TrimSpace(opts.substrate)
	opts.image = strings.TrimSpace(opts.image)

	switch opts.command {
	case "entry", "map":
		if opts.substrate == "" {
			return opts, errors.New("missing required -substrate")
		}
		if opts.background == "" || opts.foreground == "" {
			return opts, errors.New("missing required -bg/-fg colors")
		}
		if opts.command == "entry" && strings.TrimSpace(opts.thickness) == "" {
			return opts, errors.New("missing required -thickness")
		}
	case "show":
		if opts.substrate == "" {
			return opts, errors.New("missing required -substrate")
		}
	}
	return opts, nil
}

func run(opts cliOptions) error {
	cfg, err := filmcolor.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.writeConf {
		if err := filmcolor.SaveConfig(opts.configPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)
	service, err := filmcolor.NewService(cfg, logger)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	switch opts.command {
	case "":
		return nil
	case "remap":
		n, err := service.RemapResults()
		if err != nil {
			return fmt.Errorf("remap: %w", err)
		}
		fmt.Printf("Results have been remapped and consolidated (%d records).\n", n)
		return nil
	case "show":
		table, err := service.Table(opts.substrate)
		if err != nil {
			return err
		}
		printTable(table)
		return nil
	}

	req, err := buildRequest(opts)
	if err != nil {
		return err
	}
	outcome, err := service.Process(req)
	if err != nil {
		return err
	}
	if outcome.Entry != nil {
		e := outcome.Entry
		fmt.Printf("Added entry RGB %s LAB %s -> %s nm\n", filmcolor.FormatTuple(e.RGB), filmcolor.FormatTuple(e.LAB), filmcolor.FormatThickness(e.Thickness))
	}
	if outcome.Mapping != nil {
		printMapping(*outcome.Mapping)
	}
	return nil
}

func buildRequest(opts cliOptions) (filmcolor.Request, error) {
	req := filmcolor.Request{
		Substrate:   opts.substrate,
		EntryMethod: filmcolor.EntryManual,
	}
	switch opts.command {
	case "entry":
		req.Mode = filmcolor.ModeEntry
		t, err := strconv.ParseFloat(strings.TrimSpace(opts.thickness), 64)
		if err != nil {
			return req, fmt.Errorf("invalid thickness %q: %w", opts.thickness, err)
		}
		req.Thickness = t
	case "map":
		req.Mode = filmcolor.ModeMap
	}
	if opts.image != "" {
		req.EntryMethod = filmcolor.EntryImage
		req.Image = opts.image
	}
	var err error
	if req.Background, err = parseRGB(opts.background); err != nil {
		return req, fmt.Errorf("background: %w", err)
	}
	if req.Foreground, err = parseRGB(opts.foreground); err != nil {
		return req, fmt.Errorf("foreground: %w", err)
	}
	return req, nil
}

func parseRGB(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected R,G,B, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("invalid channel %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func printMapping(m filmcolor.Mapping) {
	fmt.Printf("Normalized RGB values: %s\n", filmcolor.FormatTuple(m.NormalizedRGB))
	fmt.Printf("Normalized LAB values: %s\n", filmcolor.FormatTuple(m.NormalizedLAB))
	fmt.Printf("Mapped thickness for RGB: %s nm (%s)\n", m.RGB.Thickness, m.RGB.Kind)
	fmt.Printf("Mapped thickness for LAB: %s nm (%s)\n", m.LAB.Thickness, m.LAB.Kind)
}

func printTable(t *filmcolor.LookupTable) {
	fmt.Printf("%s: %d entries\n", t.Substrate, len(t.Entries))
	for i, e := range t.Entries {
		fmt.Printf("  %3d. RGB %s  LAB %s  %s nm\n", i+1, filmcolor.FormatTuple(e.RGB), filmcolor.FormatTuple(e.LAB), filmcolor.FormatThickness(e.Thickness))
	}
}
