package main

import (
	"fmt"
	"strings"
	"time"
)

const replHelp = `Latch repl commands:

Vault:
 status            - Show vault presence and session state
 init              - Create a new password vault
 unlock            - Unlock with the master password
 lock              - Lock the vault and wipe the session key
 rekey             - Re-encrypt under a fresh master password
 prefs             - Show auth method and session time remaining
 health            - Run the password hygiene report (talks to the
                     breach endpoint; sends 5-char hash prefixes only)

Entries:
 add <title>       - Add a new entry (prompts for the rest)
 ls <query>        - Search entries
 show <query>      - Show an entry (password and totp stay hidden)
 secret <query>    - Print an entry's password
 user <query>      - Print an entry's username
 cp <query>        - Copy an entry's password to the clipboard
 totp <query>      - Show the current one-time code
 edit <query>      - Re-enter an entry's fields
 rm <query>        - Delete an entry

Other:
 gen [length]      - Generate a password
 analyze           - Score a password (prompted, not echoed)
 help              - This help
 exit              - Quit (the session dies with the process)
`

// watchInterval is how often the background session watcher looks at the
// deadline.
const watchInterval = 30 * time.Second

func (u *uiContext) runRepl() error {
	in, err := newLineEditor()
	if err != nil {
		return err
	}
	u.in = in
	defer func() { _ = u.in.Close() }()

	stop := u.eng.Watch(watchInterval, func() {
		fmt.Println()
		infoColor.Println("vault locked after inactivity")
	})
	defer stop()

	infoColor.Printf("latch %s using %s\n", version, u.shortPath)
	prompt := promptColor.Sprintf("(%s)> ", u.shortPath)

	for {
		line, err := u.in.Line(prompt)
		switch err {
		case ErrInterrupt:
			return err
		case ErrEnd:
			return nil
		case nil:
		default:
			return err
		}

		splits := strings.Fields(strings.TrimSpace(line))
		if len(splits) == 0 {
			continue
		}

		cmd, args := splits[0], splits[1:]
		unknownCmd := false

		switch cmd {
		case "help", "?":
			fmt.Print(replHelp)
		case "status":
			err = u.cmdStatus()
		case "init":
			err = u.cmdInit()
		case "unlock":
			err = u.cmdUnlock()
		case "lock":
			err = u.cmdLock()
		case "rekey":
			err = u.cmdRekey()
		case "prefs":
			err = u.cmdPrefs()
		case "health":
			err = u.cmdHealth()
		case "add":
			err = u.cmdAdd(strings.Join(args, " "))
		case "ls", "search", "find":
			err = u.cmdSearch(strings.Join(args, " "))
		case "show":
			err = u.cmdShow(strings.Join(args, " "))
		case "secret":
			err = u.cmdSecret(strings.Join(args, " "), "password")
		case "user":
			err = u.cmdSecret(strings.Join(args, " "), "username")
		case "cp", "copy":
			err = u.cmdCopy(strings.Join(args, " "))
		case "totp":
			err = u.cmdTOTP(strings.Join(args, " "))
		case "edit":
			err = u.cmdEdit(strings.Join(args, " "))
		case "rm":
			err = u.cmdRm(strings.Join(args, " "))
		case "gen":
			err = u.cmdGen(args)
		case "analyze":
			err = u.cmdAnalyzePrompt()
		case "exit", "quit":
			return nil
		default:
			unknownCmd = true
		}

		if unknownCmd {
			errColor.Printf("unknown command %q, try help\n", cmd)
		} else if err == ErrInterrupt || err == ErrEnd {
			// canceled mid-prompt, back to the loop
			fmt.Println()
		} else if err != nil {
			return err
		}
	}
}

func printKeyValue(key, value string) {
	keyColor.Printf("%12s: ", key)
	fmt.Println(value)
}
