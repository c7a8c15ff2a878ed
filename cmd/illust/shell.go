package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bobg/subcmd"
	"github.com/kballard/go-shellquote"
)

// shell reads subcommands from stdin, one per line, and runs them against the open store.
func (c *maincmd) shell(ctx context.Context, _ []string) error {
	fmt.Println("Type subcommands. 'exit' to quit.")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		words, err := shellquote.Split(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		if len(words) == 0 {
			continue
		}
		if words[0] == "shell" {
			fmt.Println("already in the shell")
			continue
		}

		if err = subcmd.Run(ctx, c, words); err != nil {
			fmt.Println("error:", err)
		}
	}
}
