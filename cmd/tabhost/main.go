package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/tabhost/internal/config"
	"github.com/1broseidon/tabhost/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "open":
		os.Exit(runOpen(os.Args[2:]))
	case "tab":
		os.Exit(runTab(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "tabhost - window and tab host for a desktop shell")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tabhost <command> [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Run the daemon (bridge, dispatcher, control socket)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  windows             List windows and their tabs")
	fmt.Fprintln(w, "  open                Open a new window")
	fmt.Fprintln(w, "  tab switch|close    Switch to or close a tab")
	fmt.Fprintln(w, "  reload              Reload configuration in the running daemon")
	fmt.Fprintln(w, "  config              Validate, print or explain configuration")
	fmt.Fprintln(w, "  mcp serve           Start the MCP server on stdio")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'tabhost <command> --help' for command-specific options.")
}

// parseFlags parses args and maps the outcome to an exit code; ok is false
// when the caller should return code.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tabhost status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running:   %v\n", status.DaemonRunning)
	fmt.Printf("shell_connected:  %v\n", status.ShellConnected)
	fmt.Printf("windows:          %d\n", status.Windows)
	fmt.Printf("tabs:             %d\n", status.Views)
	fmt.Printf("pending_removals: %d\n", status.PendingRemovals)
	fmt.Printf("uptime_seconds:   %d\n", status.UptimeSeconds)
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tabhost windows [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List windows with their tabs. The active tab is marked with '*'.")
		fmt.Fprintln(os.Stderr, "JSON is the default when stdout is not a terminal.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", !term.IsTerminal(int(os.Stdout.Fd())), "Output as JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client := ipc.NewClient()
	windows, err := client.ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(windows); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	if len(windows) == 0 {
		fmt.Println("no windows")
		return 0
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tTAB\tPATH\tSTATE")
	for _, w := range windows {
		if len(w.Tabs) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\n", w.ID)
			continue
		}
		for _, tab := range w.Tabs {
			marker := " "
			if tab.ID == w.ActiveViewID {
				marker = "*"
			}
			state := "ready"
			if tab.Loading {
				state = "loading"
				if tab.Progress != nil {
					state = fmt.Sprintf("loading %.0f%%", *tab.Progress)
				}
			}
			fmt.Fprintf(tw, "%s\t%s%s\t/%s\t%s\n", w.ID, marker, tab.ID, tab.Path, state)
		}
	}
	tw.Flush()
	return 0
}

func runOpen(args []string) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tabhost open [--query Q] [path]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a new window. A regular app path opens as the window's first tab;")
		fmt.Fprintln(os.Stderr, "a standalone path loads directly in the window chrome.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	query := fs.String("query", "", "Query string passed with the path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "open takes at most one path")
		fs.Usage()
		return 2
	}

	path := fs.Arg(0)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	client := ipc.NewClient()
	info, err := client.NewWindow(path, strings.TrimPrefix(*query, "?"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("window: %s\n", info.ID)
	if info.ActiveViewID != "" {
		fmt.Printf("tab:    %s\n", info.ActiveViewID)
	}
	return 0
}

func printTabUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tabhost tab switch <window> <id>")
	fmt.Fprintln(w, "  tabhost tab close <window> <id>")
}

func runTab(args []string) int {
	if len(args) == 0 {
		printTabUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printTabUsage(os.Stdout)
		return 0
	}

	sub := args[0]
	if sub != "switch" && sub != "close" {
		fmt.Fprintf(os.Stderr, "Unknown tab command: %s\n\n", sub)
		printTabUsage(os.Stderr)
		return 2
	}

	fs := flag.NewFlagSet(sub, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tabhost tab %s <window> <id>\n", sub)
	}
	if code, ok := parseFlags(fs, args[1:]); !ok {
		return code
	}
	if fs.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "tab %s requires <window> <id>\n", sub)
		fs.Usage()
		return 2
	}
	window, id := fs.Arg(0), fs.Arg(1)

	client := ipc.NewClient()
	switch sub {
	case "switch":
		if err := client.SwitchView(window, id); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	case "close":
		pending, err := client.RemoveView(window, id)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if pending {
			fmt.Println("tab is still loading; waiting for confirmation")
		}
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tabhost reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Re-read the config file in the running daemon.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  tabhost config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  tabhost config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  tabhost config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/tabhost/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/tabhost/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
			fmt.Printf("# base_url: %s\n", cfg.BaseURL())
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/tabhost/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", config.FormatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}
