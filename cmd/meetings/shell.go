package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/evgeniyfimushkin/event-planner/internal/app"
	"github.com/evgeniyfimushkin/event-planner/internal/guard"
	"github.com/evgeniyfimushkin/event-planner/internal/views"
)

// runShell читает команды до quit или конца ввода. Ошибки представлений уже
// показаны пользователю и оболочку не завершают.
func runShell(ctx context.Context, a *app.App, lines *views.Lines, out io.Writer) int {
	start := views.PathEvents
	if !a.Session.IsAuthenticated() {
		start = views.PathLogin
	}
	fmt.Fprintln(out, "Команды: help, quit. Любая команда CLI или путь маршрута.")
	_ = a.Navigate(ctx, start)

	for {
		if ctx.Err() != nil {
			return exitOK
		}

		line, err := lines.ReadLine(prompt(a))
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return exitOK
			}
			fmt.Fprintf(out, "ошибка ввода: %v\n", err)
			return exitError
		}

		switch line {
		case "":
			continue
		case "quit", "exit":
			return exitOK
		case "help":
			shellHelp(out)
			continue
		}

		path := line
		if cmd, ok := commands[line]; ok {
			path = cmd.path
		}

		err = a.Navigate(ctx, path)
		if errors.Is(err, guard.ErrNotFound) {
			fmt.Fprintf(out, "неизвестная команда %q, см. help\n", line)
		}
	}
}

func prompt(a *app.App) string {
	return fmt.Sprintf("meetings %s> ", strings.TrimPrefix(a.Router.Active(), "/"))
}

func shellHelp(out io.Writer) {
	for _, name := range commandNames() {
		fmt.Fprintf(out, "  %-14s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(out, "  %-14s %s\n", "quit", "exit the shell")
}
