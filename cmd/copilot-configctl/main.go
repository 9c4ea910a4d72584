// Command copilot-configctl compiles, describes, and explains
// deployment configuration profiles: scale presets, workload
// modifiers, and adopter overrides resolved into concrete Temporal
// server, dynamic-config, and DSQL connection-pool settings.
//
// Subcommands: compile, list-presets, describe-preset, explain, drift,
// set-baseline, list-profiles.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/clusterhealth/copilot/internal/compiler"
	"github.com/clusterhealth/copilot/internal/guardrail"
)

const (
	configBaseDir = ".temporal-dsql"
	latestFile    = ".latest"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	engine, err := guardrail.NewEngine(ctx)
	if err != nil {
		fail("build guard rail engine: %v", err)
	}
	c := compiler.NewCompiler(compiler.BuildDefaultRegistry(), engine)

	switch os.Args[1] {
	case "compile":
		runCompile(ctx, c, os.Args[2:])
	case "list-presets":
		runListPresets(c)
	case "describe-preset":
		runDescribePreset(c, os.Args[2:])
	case "explain":
		runExplain(ctx, c, os.Args[2:])
	case "drift":
		runDrift(ctx, os.Args[2:])
	case "set-baseline":
		runSetBaseline(ctx, os.Args[2:])
	case "list-profiles":
		runListProfiles(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: copilot-configctl <compile|list-presets|describe-preset|explain|drift|set-baseline|list-profiles> [flags]")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "copilot-configctl: "+format+"\n", args...)
	os.Exit(1)
}

// parseOverrides turns a repeated -override key=value flag list into
// compiler.Overrides, coercing each value to bool, int, float, or
// string in that order of preference.
func parseOverrides(raw []string) compiler.Overrides {
	overrides := compiler.NewOverrides()
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			fail("invalid override %q, expected key=value", item)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch strings.ToLower(value) {
		case "true", "yes":
			overrides.Values[key] = true
		case "false", "no":
			overrides.Values[key] = false
		default:
			if n, err := strconv.Atoi(value); err == nil {
				overrides.Values[key] = n
			} else if f, err := strconv.ParseFloat(value, 64); err == nil {
				overrides.Values[key] = f
			} else {
				overrides.Values[key] = value
			}
		}
	}
	return overrides
}

type repeatedFlag []string

func (r *repeatedFlag) String() string { return strings.Join(*r, ",") }
func (r *repeatedFlag) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func runCompile(ctx context.Context, c *compiler.Compiler, args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	modifier := fs.String("modifier", "", "workload modifier")
	name := fs.String("name", "", "config name, stored under .temporal-dsql/<name>/")
	output := fs.String("output", "", "explicit output directory (overrides -name)")
	format := fs.String("format", "text", "output format when not writing to disk: text or json")
	var overrideFlags repeatedFlag
	fs.Var(&overrideFlags, "override", "parameter override key=value (repeatable)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("compile requires a preset name")
	}
	preset := fs.Arg(0)

	result, err := c.Compile(ctx, preset, *modifier, parseOverrides(overrideFlags))
	if err != nil {
		fail("compilation failed: %v", err)
	}

	shouldWrite := *name != "" || *output != ""
	if !shouldWrite {
		if *format == "json" {
			printJSON(result)
		} else {
			fmt.Printf("Preset: %s\n", result.Profile.PresetName)
			if result.Profile.Modifier != "" {
				fmt.Printf("Modifier: %s\n", result.Profile.Modifier)
			}
			fmt.Println()
			fmt.Println(result.WhySection)
			printGuardRails(result.GuardRailResults)
		}
		return
	}

	target := resolveOutputDir(*name, *output, preset, *modifier)
	if err := os.MkdirAll(target, 0o755); err != nil {
		fail("create output directory: %v", err)
	}
	writeArtifact(filepath.Join(target, "profile.json"), result.Profile)
	if err := os.WriteFile(filepath.Join(target, "dynamic_config.yaml"), []byte(result.DynamicConfigYAML), 0o644); err != nil {
		fail("write dynamic_config.yaml: %v", err)
	}
	writeArtifact(filepath.Join(target, "dsql_plugin.json"), result.DSQLPluginConfig)
	for _, snippet := range append(result.SDKSnippets, result.PlatformSnippets...) {
		if err := os.WriteFile(filepath.Join(target, snippet.Filename), []byte(snippet.Content), 0o644); err != nil {
			fail("write snippet %s: %v", snippet.Filename, err)
		}
	}

	if *output == "" {
		configName := *name
		if configName == "" {
			if *modifier != "" {
				configName = preset + "-" + *modifier
			} else {
				configName = preset
			}
		}
		writeLatest(configName)
	}

	fmt.Printf("Artifacts written to %s\n", target)
	printGuardRails(result.GuardRailResults)
}

func runListPresets(c *compiler.Compiler) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tTHROUGHPUT RANGE")
	for _, s := range c.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Description, s.ThroughputRange.Description)
	}
	w.Flush()
}

func runDescribePreset(c *compiler.Compiler, args []string) {
	fs := flag.NewFlagSet("describe-preset", flag.ExitOnError)
	modifier := fs.String("modifier", "", "workload modifier")
	format := fs.String("format", "text", "output format: text or json")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("describe-preset requires a preset name")
	}
	desc, err := c.DescribePreset(fs.Arg(0), *modifier)
	if err != nil {
		fail("%v", err)
	}

	if *format == "json" {
		printJSON(desc)
		return
	}

	fmt.Printf("%s — %s\n", desc.Name, desc.Description)
	fmt.Printf("Throughput: %s\n\n", desc.ThroughputRange.Description)
	printParamTable("SLO Parameters", desc.SLOParams)
	printParamTable("Topology Parameters", desc.TopologyParams)
	printParamTable("Safety Parameters", desc.SafetyParams)
	printParamTable("Tuning Parameters", desc.TuningParams)
}

func printParamTable(title string, params []compiler.ResolvedParameter) {
	fmt.Println(title)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\tVALUE\tSOURCE")
	for _, p := range params {
		fmt.Fprintf(w, "  %s\t%v\t%s\n", p.Key, p.Value, p.Source)
	}
	w.Flush()
	fmt.Println()
}

func runExplain(ctx context.Context, c *compiler.Compiler, args []string) {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	key := fs.String("key", "", "explain a specific parameter key")
	preset := fs.String("preset", "", "explain a preset's reasoning")
	modifier := fs.String("modifier", "", "workload modifier (with -preset)")
	profilePath := fs.String("profile", "", "profile JSON file (omit to use the latest compiled config)")
	format := fs.String("format", "text", "output format: text or json")
	fs.Parse(args)

	switch {
	case *key != "":
		result, err := c.Compile(ctx, "starter", "", compiler.NewOverrides())
		if err != nil {
			fail("compile reference profile: %v", err)
		}
		explanation, err := c.ExplainKey(*key, &result.Profile)
		if err != nil {
			fail("%v", err)
		}
		printExplanation(explanation, *format)

	case *preset != "":
		explanation, err := c.ExplainPreset(*preset, *modifier)
		if err != nil {
			fail("%v", err)
		}
		printExplanation(explanation, *format)

	default:
		path := resolveProfilePath(*profilePath)
		data, err := os.ReadFile(path)
		if err != nil {
			fail("read profile %s: %v", path, err)
		}
		var profile compiler.Profile
		if err := json.Unmarshal(data, &profile); err != nil {
			fail("parse profile %s: %v", path, err)
		}
		explanation, err := c.ExplainProfile(ctx, &profile)
		if err != nil {
			fail("%v", err)
		}
		printExplanation(explanation, *format)
	}
}

// textJSONer is satisfied by every *Explanation type in
// internal/compiler; explain.go defines ToText/ToJSON on each without
// a shared interface, so configctl declares the minimal one it needs.
type textJSONer interface {
	ToText() string
	ToJSON() ([]byte, error)
}

func printExplanation(e textJSONer, format string) {
	if format == "json" {
		data, err := e.ToJSON()
		if err != nil {
			fail("marshal explanation: %v", err)
		}
		fmt.Println(string(data))
		return
	}
	fmt.Println(e.ToText())
}

func printGuardRails(results []guardrail.Result) {
	for _, r := range results {
		fmt.Printf("  %s: %s\n", r.Severity, r.Message)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("marshal json: %v", err)
	}
	fmt.Println(string(data))
}

func writeArtifact(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fail("write %s: %v", path, err)
	}
}

func resolveOutputDir(name, output, preset, modifier string) string {
	if output != "" {
		return output
	}
	if name == "" {
		parts := []string{preset}
		if modifier != "" {
			parts = append(parts, modifier)
		}
		name = strings.Join(parts, "-")
	}
	return filepath.Join(configBaseDir, name)
}

func writeLatest(configName string) {
	if err := os.MkdirAll(configBaseDir, 0o755); err != nil {
		fail("create %s: %v", configBaseDir, err)
	}
	if err := os.WriteFile(filepath.Join(configBaseDir, latestFile), []byte(configName+"\n"), 0o644); err != nil {
		fail("write %s: %v", latestFile, err)
	}
}

func readLatest() (string, bool) {
	data, err := os.ReadFile(filepath.Join(configBaseDir, latestFile))
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(string(data))
	return name, name != ""
}

func resolveProfilePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	latest, ok := readLatest()
	if !ok {
		fail("no -profile given and no %s/%s found; run compile first or pass -profile explicitly", configBaseDir, latestFile)
	}
	path := filepath.Join(configBaseDir, latest, "profile.json")
	if _, err := os.Stat(path); err != nil {
		fail("profile not found: %s", path)
	}
	fmt.Printf("using latest config: %s\n", latest)
	return path
}
