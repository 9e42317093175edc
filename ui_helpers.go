package main

import (
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/gookit/color"
	"github.com/pkg/errors"
)

// Line editing sentinels shared by the repl loop.
var (
	ErrInterrupt = readline.ErrInterrupt
	ErrEnd       = io.EOF
)

var (
	promptColor = color.FgLightBlue
	infoColor   = color.FgLightMagenta
	errColor    = color.FgRed
	keyColor    = color.FgLightGreen
)

type lineEditor struct {
	rl *readline.Instance
}

func newLineEditor() (lineEditor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return lineEditor{}, errors.Wrap(err, "failed to init readline")
	}
	return lineEditor{rl: rl}, nil
}

func (l lineEditor) Close() error {
	if l.rl == nil {
		return nil
	}
	return l.rl.Close()
}

// Line reads one line with the given prompt.
func (l lineEditor) Line(prompt string) (string, error) {
	l.rl.SetPrompt(prompt)
	line, err := l.rl.Readline()
	l.rl.SetPrompt("> ")
	return line, err
}

// LineHidden reads a line without echoing it back.
func (l lineEditor) LineHidden(prompt string) (string, error) {
	pw, err := l.rl.ReadPassword(color.ClearCode(prompt))
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (u *uiContext) prompt(prompt string) (string, error) {
	line, err := u.in.Line(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (u *uiContext) promptPassword(prompt string) (string, error) {
	return u.in.LineHidden(prompt)
}

// promptPasswordConfirm asks twice and loops until the two entries agree.
func (u *uiContext) promptPasswordConfirm(what string) (string, error) {
	for {
		first, err := u.promptPassword(what + ": ")
		if err != nil {
			return "", err
		}
		second, err := u.promptPassword("verify " + what + ": ")
		if err != nil {
			return "", err
		}

		if first == second {
			return first, nil
		}
		errColor.Println("entries did not match, try again")
	}
}
