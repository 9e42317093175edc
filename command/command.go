// Package command is the stable boundary the UI talks to: JSON requests in,
// JSON responses out. Every response carries status "success" or "error";
// search results are the one exception, serializing as a bare array on
// success the way the UI has always consumed them.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/parthashirolkar/latch/engine"
	"github.com/parthashirolkar/latch/health"
	"github.com/parthashirolkar/latch/pwgen"
)

// Request is the flat command envelope. Only the fields relevant to the
// named command are consulted.
type Request struct {
	Command string `json:"command"`

	Password string `json:"password,omitempty"`
	KeyHex   string `json:"key_hex,omitempty"`
	KDF      string `json:"kdf,omitempty"`
	IDToken  string `json:"id_token,omitempty"`

	NewKeyHex string `json:"new_key_hex,omitempty"`
	NewKDF    string `json:"new_kdf,omitempty"`
	NewSalt   string `json:"new_salt,omitempty"`

	ID       string `json:"id,omitempty"`
	EntryID  string `json:"entryId,omitempty"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
	URL      string `json:"url,omitempty"`
	IconURL  string `json:"iconUrl,omitempty"`
	Notes    string `json:"notes,omitempty"`
	TOTP     string `json:"totp,omitempty"`

	Field string `json:"field,omitempty"`
	Query string `json:"query,omitempty"`

	Length           *int  `json:"length,omitempty"`
	Uppercase        *bool `json:"uppercase,omitempty"`
	Lowercase        *bool `json:"lowercase,omitempty"`
	Numbers          *bool `json:"numbers,omitempty"`
	Symbols          *bool `json:"symbols,omitempty"`
	ExcludeAmbiguous *bool `json:"exclude_ambiguous,omitempty"`
}

// Dispatcher routes requests to the engine.
type Dispatcher struct {
	engine *engine.Engine
	breach *health.BreachClient
	log    zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBreachClient sets the breach lookup client used by
// check_vault_health. Without one, breach status reports unknown.
func WithBreachClient(c *health.BreachClient) Option {
	return func(d *Dispatcher) { d.breach = c }
}

// WithLogger enables request logging. Only command names and outcomes are
// logged, never parameters.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// New builds a dispatcher over an engine.
func New(e *engine.Engine, opts ...Option) *Dispatcher {
	d := &Dispatcher{engine: e, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle parses one request and returns the serialized response. It never
// returns malformed JSON.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse("malformed request")
	}

	payload, err := d.dispatch(ctx, &req)
	if err != nil {
		d.log.Info().Str("command", req.Command).Str("outcome", "error").Msg("command")
		return errorResponse(errorMessage(err))
	}

	d.log.Info().Str("command", req.Command).Str("outcome", "success").Msg("command")

	out, merr := json.Marshal(payload)
	if merr != nil {
		return errorResponse("failed to serialize response")
	}
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request) (any, error) {
	switch req.Command {
	case "vault_status":
		hasVault, unlocked := d.engine.Status()
		return map[string]any{"status": "success", "has_vault": hasVault, "is_unlocked": unlocked}, nil

	case "init_vault":
		return ok(d.engine.InitPassword(req.Password))

	case "init_vault_with_key":
		return ok(d.engine.InitWithKey(req.KeyHex, req.KDF))

	case "init_vault_oauth":
		return ok(d.engine.InitOAuth(req.IDToken))

	case "unlock_vault":
		return ok(d.engine.UnlockPassword(req.Password))

	case "unlock_vault_with_key":
		return ok(d.engine.UnlockWithKey(req.KeyHex))

	case "unlock_vault_oauth":
		return ok(d.engine.UnlockOAuth(req.IDToken))

	case "lock_vault":
		d.engine.Lock()
		return success(), nil

	case "get_vault_auth_method":
		method, err := d.engine.AuthMethod()
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "success", "auth_method": method}, nil

	case "get_auth_preferences":
		method, remaining, err := d.engine.AuthPreferences()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"status":                    "success",
			"auth_method":               method,
			"session_valid":             true,
			"session_remaining_seconds": remaining,
		}, nil

	case "reencrypt_vault":
		return ok(d.engine.Reencrypt(req.NewKeyHex, req.NewKDF, req.NewSalt))

	case "reencrypt_vault_to_oauth":
		return ok(d.engine.ReencryptOAuth(req.IDToken))

	case "add_entry":
		id, err := d.engine.AddEntry(fields(req))
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "success", "id": id}, nil

	case "update_entry":
		return ok(d.engine.UpdateEntry(req.ID, fields(req)))

	case "delete_entry":
		return ok(d.engine.DeleteEntry(req.EntryID))

	case "get_full_entry":
		entry, err := d.engine.FullEntry(req.EntryID)
		if err != nil {
			return nil, err
		}
		return fullEntryResponse{Status: "success", Entry: entry}, nil

	case "search_entries":
		results, err := d.engine.Search(req.Query)
		if err != nil {
			return nil, err
		}
		if results == nil {
			results = []engine.Preview{}
		}
		// success shape is a top-level array
		return results, nil

	case "request_secret":
		value, err := d.engine.Secret(req.EntryID, req.Field)
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "success", "value": value}, nil

	case "get_totp":
		code, remaining, err := d.engine.TOTPCode(req.EntryID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"status":                   "success",
			"code":                     code,
			"period_remaining_seconds": remaining,
		}, nil

	case "analyze_password_strength":
		s := health.Analyze(req.Password)
		return map[string]any{
			"status":  "success",
			"score":   s.Score,
			"entropy": s.EntropyBits,
			"label":   s.Label,
		}, nil

	case "generate_password":
		password, err := pwgen.Generate(generatorOptions(req))
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "success", "password": password}, nil

	case "check_vault_health":
		report, err := d.engine.Health(ctx, d.breach)
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "success", "report": report}, nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", engine.ErrInvalid, req.Command)
	}
}

func fields(req *Request) engine.Fields {
	return engine.Fields{
		Title:    req.Title,
		Username: req.Username,
		Password: req.Password,
		URL:      req.URL,
		Notes:    req.Notes,
		IconURL:  req.IconURL,
		TOTP:     req.TOTP,
	}
}

func generatorOptions(req *Request) pwgen.Options {
	opts := pwgen.DefaultOptions()
	if req.Length != nil {
		opts.Length = *req.Length
	}
	if req.Uppercase != nil {
		opts.Uppercase = *req.Uppercase
	}
	if req.Lowercase != nil {
		opts.Lowercase = *req.Lowercase
	}
	if req.Numbers != nil {
		opts.Numbers = *req.Numbers
	}
	if req.Symbols != nil {
		opts.Symbols = *req.Symbols
	}
	if req.ExcludeAmbiguous != nil {
		opts.ExcludeAmbiguous = *req.ExcludeAmbiguous
	}
	return opts
}

type fullEntryResponse struct {
	Status string `json:"status"`
	engine.Entry
}

func success() map[string]any {
	return map[string]any{"status": "success"}
}

func ok(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return success(), nil
}

func errorResponse(message string) []byte {
	out, _ := json.Marshal(map[string]string{"status": "error", "message": message})
	return out
}

// errorMessage maps a failure onto its short human string. Secret material
// never appears here.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrLocked):
		return "locked"
	case errors.Is(err, engine.ErrAuthFailed):
		return "authentication failed"
	default:
		return err.Error()
	}
}
