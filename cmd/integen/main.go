package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Gundo1b/integenai/internal/app"
	"github.com/Gundo1b/integenai/internal/tui"
)

const version = "1.0.0"

var (
	flagConfig  string
	flagModel   string
	flagStorage string
	flagBackend string
	flagMock    bool
	flagNoTUI   bool
)

func main() {
	root := &cobra.Command{
		Use:     "integen",
		Short:   "integen - multi-session AI chat in your terminal",
		Long:    "integen is a terminal chat client for Gemini with multiple conversations,\nstreaming responses, and automatic chat titles.\n\nRun without arguments for the full-screen UI, or with --no-tui for a plain REPL.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApplication()
			if err != nil {
				return err
			}
			if flagNoTUI {
				return runREPL(application)
			}
			return tui.Run(application)
		},
	}

	root.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to config file")
	root.Flags().StringVarP(&flagModel, "model", "m", "", "Model id to start with")
	root.Flags().StringVar(&flagStorage, "storage", "", "Storage directory for chats and logs")
	root.Flags().StringVar(&flagBackend, "backend", "", "Storage backend: file|sqlite")
	root.Flags().BoolVar(&flagMock, "mock", false, "Use the built-in mock backend (no API key needed)")
	root.Flags().BoolVarP(&flagNoTUI, "no-tui", "n", false, "Plain REPL instead of the full-screen UI")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("integen v%s\n", version)
		},
	}
	root.AddCommand(versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildApplication() (*app.Application, error) {
	configPath := flagConfig
	if configPath == "" {
		configPath = app.DefaultConfigPath()
	}
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if flagStorage != "" {
		cfg.StorageRoot = flagStorage
	}
	if flagBackend != "" {
		cfg.Backend = flagBackend
	}

	mock := flagMock || cfg.APIKey == ""
	application, err := app.NewApplication(cfg, mock)
	if err != nil {
		return nil, err
	}
	if flagModel != "" {
		application.Store.SetModel(flagModel)
	}
	return application, nil
}

// echoDelta decides what to print for the assistant message's current
// content given what was already echoed. Streamed updates extend the prefix;
// a replacement (finalize swapping a partial answer for an error line) is
// printed whole on its own line.
func echoDelta(echoed, content string) (out, next string) {
	if content == echoed {
		return "", echoed
	}
	if strings.HasPrefix(content, echoed) {
		return content[len(echoed):], content
	}
	return "\n" + content, content
}

// runREPL is the plain stdin/stdout loop: one line in, one streamed answer
// out. Useful over SSH and in scripts.
func runREPL(application *app.Application) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		fmt.Println()
		os.Exit(0)
	}()

	// Stream deltas straight to stdout as they land in the store. Finalize
	// may replace a partial answer outright (error text is shorter than the
	// streamed prefix), so replacements are printed on their own line.
	var echoed string
	application.Store.Subscribe(func(ev app.Event) {
		if ev != app.EventTranscriptChanged {
			return
		}
		state := application.Store.Snapshot()
		sess := state.ActiveSession()
		if sess == nil || len(sess.Messages) == 0 {
			return
		}
		last := sess.Messages[len(sess.Messages)-1]
		if last.Role != app.RoleAssistant {
			return
		}
		var out string
		out, echoed = echoDelta(echoed, last.Content)
		fmt.Print(out)
	})

	model := app.DisplayModel(application.Store.Snapshot().Model)
	fmt.Printf("integen v%s · %s · /quit to exit, /new for a fresh chat\n", version, model.Name)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			application.Store.NewSession()
			fmt.Println("(new chat)")
			continue
		}

		echoed = ""
		if !application.SubmitAndWait(ctx, line) {
			fmt.Println("(not sent: a response is still in flight)")
			continue
		}
		fmt.Println()
	}
	return scanner.Err()
}
