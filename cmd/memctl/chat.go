package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/steveyegge/memctl/internal/loop"
	"github.com/steveyegge/memctl/internal/orchestrate"
)

// promptStyle is the "you>" prompt style, AdaptiveColor so it stays
// legible on both light and dark terminal backgrounds.
var promptColorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#399ee6",
	Dark:  "#59c2ff",
}).Bold(true)

var (
	chatCmdStr     string
	chatScope      string
	chatPersist    bool
	chatHistoryMax int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive memory-backed REPL",
	Long: `Reads questions from stdin, one per line, recalls from the store, and
answers each turn through --cmd. With --persist, every answer is written
back through policy as an STM item. History is a sliding window bounded
by both turn count and character budget.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if chatCmdStr == "" {
			return operationalError(fmt.Errorf("chat: --cmd is required"))
		}
		invoker := &loop.SubprocessInvoker{Command: strings.Fields(chatCmdStr)}

		session := orchestrate.NewChat(store, ev, orchestrate.ChatOptions{
			Scope:           chatScope,
			Invoker:         invoker,
			Persist:         chatPersist,
			HistoryMaxTurns: chatHistoryMax,
			HistoryMaxChars: chatHistoryMax * 400,
		})

		prompt := promptStyle()
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, prompt.Render("you> "))
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}
			if _, err := session.Turn(rootCtx, question, os.Stdout, os.Stderr); err != nil {
				fmt.Fprintf(os.Stderr, "chat: %v\n", err)
				continue
			}
			fmt.Fprintln(os.Stdout)
		}
		return scanner.Err()
	},
}

// promptStyle returns the styled "you>" prompt when stderr is a TTY with
// color support, and the plain unstyled string otherwise, so piped
// output never carries ANSI escapes.
func promptStyle() lipgloss.Style {
	if !term.IsTerminal(int(os.Stderr.Fd())) || termenv.ColorProfile() == termenv.Ascii {
		return lipgloss.NewStyle()
	}
	return promptColorStyle
}

func init() {
	chatCmd.Flags().StringVar(&chatCmdStr, "cmd", "", "subprocess command implementing the LLM side of the protocol")
	chatCmd.Flags().StringVar(&chatScope, "scope", "", "restrict recall to this scope")
	chatCmd.Flags().BoolVar(&chatPersist, "persist", false, "persist each answer through policy as an STM item")
	chatCmd.Flags().IntVar(&chatHistoryMax, "history-max", 0, "sliding-window turn cap (0 disables history)")
}
