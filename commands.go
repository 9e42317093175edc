package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/atotto/clipboard"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pkg/errors"

	"github.com/parthashirolkar/latch/auth"
)

// call sends one request through the command surface and reports the
// parsed response. Errors are shown to the user, not returned.
func (u *uiContext) call(req map[string]any) (map[string]any, bool) {
	raw, err := json.Marshal(req)
	if err != nil {
		errColor.Println("internal error:", err)
		return nil, false
	}

	out := u.dispatcher.Handle(context.Background(), raw)

	var resp map[string]any
	if err := json.Unmarshal(out, &resp); err != nil {
		errColor.Println("internal error:", err)
		return nil, false
	}

	if resp["status"] != "success" {
		message, _ := resp["message"].(string)
		errColor.Println(message)
		return nil, false
	}
	return resp, true
}

// callList is call for search_entries, whose success shape is an array.
func (u *uiContext) callList(req map[string]any) ([]map[string]any, bool) {
	raw, err := json.Marshal(req)
	if err != nil {
		errColor.Println("internal error:", err)
		return nil, false
	}

	out := u.dispatcher.Handle(context.Background(), raw)

	var list []map[string]any
	if err := json.Unmarshal(out, &list); err == nil {
		return list, true
	}

	var resp map[string]any
	if err := json.Unmarshal(out, &resp); err != nil {
		errColor.Println("internal error:", err)
		return nil, false
	}
	message, _ := resp["message"].(string)
	errColor.Println(message)
	return nil, false
}

func (u *uiContext) cmdStatus() error {
	resp, ok := u.call(map[string]any{"command": "vault_status"})
	if !ok {
		return nil
	}

	printKeyValue("vault file", u.shortPath)
	printKeyValue("has vault", fmt.Sprint(resp["has_vault"]))
	printKeyValue("unlocked", fmt.Sprint(resp["is_unlocked"]))
	return nil
}

func (u *uiContext) cmdInit() error {
	password, err := u.promptPasswordConfirm("master password")
	if err != nil {
		return err
	}

	if _, ok := u.call(map[string]any{"command": "init_vault", "password": password}); ok {
		infoColor.Println("vault created and unlocked")
	}
	return nil
}

func (u *uiContext) cmdUnlock() error {
	password, err := u.promptPassword("master password: ")
	if err != nil {
		return err
	}

	if _, ok := u.call(map[string]any{"command": "unlock_vault", "password": password}); ok {
		infoColor.Println("unlocked")
	}
	return nil
}

func (u *uiContext) cmdLock() error {
	if _, ok := u.call(map[string]any{"command": "lock_vault"}); ok {
		infoColor.Println("locked")
	}
	return nil
}

// cmdRekey derives a fresh password key on this side of the command
// surface, the way a UI front-end would, and re-encrypts the vault under
// it.
func (u *uiContext) cmdRekey() error {
	password, err := u.promptPasswordConfirm("new master password")
	if err != nil {
		return err
	}

	method, err := auth.NewPassword()
	if err != nil {
		return errors.Wrap(err, "failed to generate salt")
	}

	key := method.Key([]byte(password))
	defer key.Destroy()

	_, ok := u.call(map[string]any{
		"command":     "reencrypt_vault",
		"new_key_hex": hex.EncodeToString(key.Bytes()),
		"new_kdf":     method.KDFTag(),
		"new_salt":    method.EnvelopeSalt(),
	})
	if ok {
		infoColor.Println("vault re-encrypted under the new password")
	}
	return nil
}

func (u *uiContext) cmdPrefs() error {
	resp, ok := u.call(map[string]any{"command": "get_auth_preferences"})
	if !ok {
		return nil
	}

	printKeyValue("auth method", fmt.Sprint(resp["auth_method"]))
	printKeyValue("session", fmt.Sprint(resp["session_valid"]))
	if remaining, ok := resp["session_remaining_seconds"].(float64); ok && remaining > 0 {
		printKeyValue("remaining", (time.Duration(remaining) * time.Second).String())
	}
	return nil
}

func (u *uiContext) cmdAdd(title string) error {
	var err error
	if title == "" {
		title, err = u.prompt("title: ")
		if err != nil {
			return err
		}
	}

	username, err := u.prompt("username: ")
	if err != nil {
		return err
	}

	password, err := u.promptPassword("password (empty to generate): ")
	if err != nil {
		return err
	}
	if password == "" {
		resp, ok := u.call(map[string]any{"command": "generate_password"})
		if !ok {
			return nil
		}
		password, _ = resp["password"].(string)
		infoColor.Println("generated a 16 character password")
	}

	url, err := u.prompt("url (optional): ")
	if err != nil {
		return err
	}
	notes, err := u.prompt("notes (optional): ")
	if err != nil {
		return err
	}
	totp, err := u.prompt("totp secret (optional): ")
	if err != nil {
		return err
	}

	resp, ok := u.call(map[string]any{
		"command":  "add_entry",
		"title":    title,
		"username": username,
		"password": password,
		"url":      url,
		"notes":    notes,
		"totp":     totp,
	})
	if ok {
		infoColor.Printf("added %s (%s)\n", title, resp["id"])
	}
	return nil
}

func (u *uiContext) cmdSearch(query string) error {
	results, ok := u.callList(map[string]any{"command": "search_entries", "query": query})
	if !ok {
		return nil
	}
	if len(results) == 0 {
		infoColor.Println("no matches")
		return nil
	}

	for _, r := range results {
		title, _ := r["title"].(string)
		username, _ := r["username"].(string)
		if username != "" {
			fmt.Printf("%s  %s\n", title, infoColor.Sprintf("(%s)", username))
		} else {
			fmt.Println(title)
		}
	}
	return nil
}

// pickEntry resolves a query to a single entry id, asking the user to
// disambiguate when several match. The title closest to the query by fuzzy
// rank is moved to the front of the listing (choice 1); the others keep the
// search order apart from the one swapped with it.
func (u *uiContext) pickEntry(query string) (id, title string, err error) {
	if query == "" {
		query, err = u.prompt("entry: ")
		if err != nil {
			return "", "", err
		}
	}

	results, ok := u.callList(map[string]any{"command": "search_entries", "query": query})
	if !ok {
		return "", "", nil
	}
	if len(results) == 0 {
		errColor.Println("no matches")
		return "", "", nil
	}
	if len(results) == 1 {
		id, _ := results[0]["id"].(string)
		title, _ := results[0]["title"].(string)
		return id, title, nil
	}

	titles := make([]string, len(results))
	for i, r := range results {
		titles[i], _ = r["title"].(string)
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Sort(ranks)
	if len(ranks) > 0 {
		// bubble the closest title to the front of the listing
		best := ranks[0].OriginalIndex
		results[0], results[best] = results[best], results[0]
		titles[0], titles[best] = titles[best], titles[0]
	}

	for i, t := range titles {
		fmt.Printf("%2d) %s\n", i+1, t)
	}

	line, err := u.prompt("which: ")
	if err != nil {
		return "", "", err
	}
	n, convErr := strconv.Atoi(line)
	if convErr != nil || n < 1 || n > len(results) {
		errColor.Println("not a valid choice")
		return "", "", nil
	}

	id, _ = results[n-1]["id"].(string)
	title = titles[n-1]
	return id, title, nil
}

func (u *uiContext) cmdShow(query string) error {
	id, _, err := u.pickEntry(query)
	if err != nil || id == "" {
		return err
	}

	resp, ok := u.call(map[string]any{"command": "get_full_entry", "entryId": id})
	if !ok {
		return nil
	}

	printKeyValue("title", fmt.Sprint(resp["title"]))
	printKeyValue("username", fmt.Sprint(resp["username"]))
	printKeyValue("password", "(hidden, use secret or cp)")
	for _, key := range []string{"url", "notes"} {
		if v, ok := resp[key].(string); ok && v != "" {
			printKeyValue(key, v)
		}
	}
	if _, hasTOTP := resp["totp"]; hasTOTP {
		printKeyValue("totp", "(configured, use totp)")
	}
	if created, ok := resp["created_at"].(float64); ok {
		printKeyValue("created", time.Unix(int64(created), 0).Format(time.DateTime))
	}
	if updated, ok := resp["updated_at"].(float64); ok {
		printKeyValue("updated", time.Unix(int64(updated), 0).Format(time.DateTime))
	}
	printKeyValue("id", fmt.Sprint(resp["id"]))
	return nil
}

func (u *uiContext) cmdSecret(query, field string) error {
	id, _, err := u.pickEntry(query)
	if err != nil || id == "" {
		return err
	}

	resp, ok := u.call(map[string]any{"command": "request_secret", "entryId": id, "field": field})
	if !ok {
		return nil
	}
	fmt.Println(resp["value"])
	return nil
}

func (u *uiContext) cmdCopy(query string) error {
	id, title, err := u.pickEntry(query)
	if err != nil || id == "" {
		return err
	}

	resp, ok := u.call(map[string]any{"command": "request_secret", "entryId": id, "field": "password"})
	if !ok {
		return nil
	}

	value, _ := resp["value"].(string)
	if err := clipboard.WriteAll(value); err != nil {
		return errors.Wrap(err, "failed to write clipboard")
	}
	infoColor.Printf("password for %s copied (clipboard does not auto-clear)\n", title)
	return nil
}

func (u *uiContext) cmdTOTP(query string) error {
	id, _, err := u.pickEntry(query)
	if err != nil || id == "" {
		return err
	}

	resp, ok := u.call(map[string]any{"command": "get_totp", "entryId": id})
	if !ok {
		return nil
	}

	remaining, _ := resp["period_remaining_seconds"].(float64)
	fmt.Printf("%s %s\n", resp["code"], infoColor.Sprintf("(%ds left)", int(remaining)))
	return nil
}

func (u *uiContext) cmdEdit(query string) error {
	id, _, err := u.pickEntry(query)
	if err != nil || id == "" {
		return err
	}

	current, ok := u.call(map[string]any{"command": "get_full_entry", "entryId": id})
	if !ok {
		return nil
	}

	str := func(key string) string {
		v, _ := current[key].(string)
		return v
	}

	promptDefault := func(label, def string) (string, error) {
		line, err := u.prompt(fmt.Sprintf("%s [%s]: ", label, def))
		if err != nil {
			return "", err
		}
		if line == "" {
			return def, nil
		}
		return line, nil
	}

	title, err := promptDefault("title", str("title"))
	if err != nil {
		return err
	}
	username, err := promptDefault("username", str("username"))
	if err != nil {
		return err
	}
	password, err := u.promptPassword("password (empty keeps current): ")
	if err != nil {
		return err
	}
	if password == "" {
		password = str("password")
	}
	url, err := promptDefault("url", str("url"))
	if err != nil {
		return err
	}
	notes, err := promptDefault("notes", str("notes"))
	if err != nil {
		return err
	}

	_, ok = u.call(map[string]any{
		"command":  "update_entry",
		"id":       id,
		"title":    title,
		"username": username,
		"password": password,
		"url":      url,
		"notes":    notes,
		"totp":     str("totp"),
	})
	if ok {
		infoColor.Println("updated")
	}
	return nil
}

func (u *uiContext) cmdRm(query string) error {
	id, title, err := u.pickEntry(query)
	if err != nil || id == "" {
		return err
	}

	line, err := u.prompt(fmt.Sprintf("delete %q? (y/N): ", title))
	if err != nil {
		return err
	}
	if line != "y" && line != "Y" {
		return nil
	}

	if _, ok := u.call(map[string]any{"command": "delete_entry", "entryId": id}); ok {
		infoColor.Println("deleted")
	}
	return nil
}

func (u *uiContext) cmdGen(args []string) error {
	req := map[string]any{"command": "generate_password"}
	if len(args) > 0 {
		length, err := strconv.Atoi(args[0])
		if err != nil {
			errColor.Println("length must be a number")
			return nil
		}
		req["length"] = length
	}

	resp, ok := u.call(req)
	if !ok {
		return nil
	}
	fmt.Println(resp["password"])
	return nil
}

func (u *uiContext) cmdAnalyzePrompt() error {
	password, err := u.promptPassword("password to analyze: ")
	if err != nil {
		return err
	}
	return u.printAnalysis(password)
}

func (u *uiContext) printAnalysis(password string) error {
	resp, ok := u.call(map[string]any{"command": "analyze_password_strength", "password": password})
	if !ok {
		return errors.New("analysis failed")
	}

	score, _ := resp["score"].(float64)
	entropy, _ := resp["entropy"].(float64)
	printKeyValue("score", fmt.Sprintf("%d/4 (%s)", int(score), resp["label"]))
	printKeyValue("entropy", fmt.Sprintf("%.1f bits", entropy))
	return nil
}

func (u *uiContext) cmdHealth() error {
	infoColor.Println("checking vault health, breach lookup sends 5-character hash prefixes only")

	resp, ok := u.call(map[string]any{"command": "check_vault_health"})
	if !ok {
		return nil
	}

	report, _ := resp["report"].(map[string]any)
	if report == nil {
		return nil
	}

	overall, _ := report["overall_score"].(float64)
	printKeyValue("overall", fmt.Sprintf("%d/100", int(overall)))
	if total, ok := report["total_entries"].(float64); ok {
		printKeyValue("entries", fmt.Sprintf("%d (%v strong)", int(total), report["strong_passwords"]))
	}
	if avg, ok := report["average_entropy"].(float64); ok {
		printKeyValue("avg entropy", fmt.Sprintf("%.1f bits", avg))
	}

	section := func(key, label string) {
		list, _ := report[key].([]any)
		if len(list) == 0 {
			return
		}
		errColor.Printf("%s:\n", label)
		for _, item := range list {
			m, _ := item.(map[string]any)
			if m == nil {
				continue
			}
			switch key {
			case "reused_passwords":
				entries, _ := m["entries"].([]any)
				names := make([]string, 0, len(entries))
				for _, e := range entries {
					em, _ := e.(map[string]any)
					if em != nil {
						names = append(names, fmt.Sprint(em["title"]))
					}
				}
				fmt.Printf("  shared by %v entries: %v\n", m["count"], names)
			case "breached_credentials":
				fmt.Printf("  %v (seen %v times in breaches)\n", m["title"], m["breach_count"])
			default:
				fmt.Printf("  %v (%v)\n", m["title"], m["label"])
			}
		}
	}

	section("weak_passwords", "weak passwords")
	section("reused_passwords", "reused passwords")
	section("breached_credentials", "breached credentials")

	if unavailable, _ := report["breach_check_unavailable"].(bool); unavailable {
		infoColor.Println("breach endpoint unreachable, breach status unknown")
	}
	return nil
}

// runGen is the one-shot gen subcommand.
func (u *uiContext) runGen() error {
	resp, ok := u.call(map[string]any{
		"command":           "generate_password",
		"length":            flagGenLength,
		"uppercase":         !flagGenNoUpper,
		"lowercase":         !flagGenNoLower,
		"numbers":           !flagGenNoNumbers,
		"symbols":           !flagGenNoSymbols,
		"exclude_ambiguous": flagGenNoAmbiguous,
	})
	if !ok {
		return errors.New("generation failed")
	}
	fmt.Println(resp["password"])
	return nil
}

// runAnalyze is the one-shot analyze subcommand.
func (u *uiContext) runAnalyze() error {
	return u.printAnalysis(argAnalyzePassword)
}
