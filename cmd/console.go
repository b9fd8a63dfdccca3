package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jamalekbot/pkg/message"
	"jamalekbot/pkg/ui/console"
)

var (
	consoleText  string
	consolePlain bool
)

var consoleCmd = &cobra.Command{
	Use:   "console [text]",
	Short: "Try bot commands in the terminal",
	Long:  "Answers commands against the configured directory without connecting to a messaging network.",
	Run: func(cmd *cobra.Command, args []string) {
		text := resolveText(args)

		cfg, log, err := loadRuntime("cmd.console")
		if err != nil {
			fmt.Printf("failed to start: %v\n", err)
			return
		}

		ctx := context.Background()
		dir, err := buildDirectory(ctx, cfg, log)
		if err != nil {
			fmt.Printf("failed to configure directory: %v\n", err)
			return
		}

		replyFn := console.NewReplyFunc(dir, log)
		info := console.Info{Directory: describeDirectory(cfg), Transport: "console"}

		switch {
		case consolePlain && text != "":
			runPlainOnce(ctx, replyFn, text)
		case consolePlain:
			runPlain(ctx, replyFn)
		case text != "":
			if err := console.RunOneShot(ctx, replyFn, text, info); err != nil {
				fmt.Printf("console failed: %v\n", err)
			}
		default:
			if err := console.RunInteractive(ctx, replyFn, info); err != nil {
				fmt.Printf("console failed: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().StringVarP(&consoleText, "text", "t", "", "message text to send")
	consoleCmd.Flags().BoolVar(&consolePlain, "plain", false, "use line-based output instead of the full-screen UI")
}

func resolveText(args []string) string {
	if value := strings.TrimSpace(consoleText); value != "" {
		return value
	}

	return strings.TrimSpace(strings.Join(args, " "))
}

func runPlainOnce(ctx context.Context, replyFn console.ReplyFunc, text string) {
	units, err := replyFn(ctx, text)
	if err != nil {
		fmt.Printf("reply failed: %v\n", err)
		return
	}

	printUnits(units)
}

func runPlain(ctx context.Context, replyFn console.ReplyFunc) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("👤 ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Printf("input error: %v\n", err)
			}
			return
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if isExitCommand(text) {
			return
		}

		runPlainOnce(ctx, replyFn, text)
	}
}

func printUnits(units []message.Outbound) {
	for _, unit := range units {
		for _, line := range unitLines(unit) {
			fmt.Println(line)
		}
		fmt.Println()
	}
}

func unitLines(unit message.Outbound) []string {
	if unit.Kind == message.OutboundMedia {
		line := "🖼️ " + unit.URL
		if caption := strings.TrimSpace(unit.Caption); caption != "" {
			line += " (" + caption + ")"
		}
		return []string{line}
	}

	trimmed := strings.TrimSpace(unit.Body)
	if trimmed == "" {
		return nil
	}

	lines := strings.Split(trimmed, "\n")
	for i, line := range lines {
		lines[i] = "🤖 " + line
	}
	return lines
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", ":q":
		return true
	default:
		return false
	}
}
