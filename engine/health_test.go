package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parthashirolkar/latch/health"
)

func TestHealthReport(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	require.NoError(t, e.InitWithKey(testKeyHex, "none"))

	idA, err := e.AddEntry(Fields{Title: "A", Password: "abc"})
	require.NoError(t, err)
	idB, err := e.AddEntry(Fields{Title: "B", Password: "abc"})
	require.NoError(t, err)
	idC, err := e.AddEntry(Fields{Title: "C", Password: "Tr0ub4dor&3"})
	require.NoError(t, err)

	report, err := e.Health(context.Background(), nil)
	require.NoError(t, err)

	weakIDs := make([]string, 0, len(report.WeakPasswords))
	for _, w := range report.WeakPasswords {
		weakIDs = append(weakIDs, w.EntryID)
	}
	require.ElementsMatch(t, []string{idA, idB}, weakIDs)

	require.Len(t, report.ReusedPasswords, 1)
	group := report.ReusedPasswords[0]
	require.Equal(t, "abc", group.Password)
	require.Equal(t, 2, group.Count)
	require.Equal(t, idA, group.Entries[0].EntryID)
	require.Equal(t, idB, group.Entries[1].EntryID)

	for _, w := range report.WeakPasswords {
		require.NotEqual(t, idC, w.EntryID, "strong entries are not weak")
	}

	require.True(t, report.BreachUnknown, "no client means the breach state is unknown")
	require.Equal(t, 3, report.TotalEntries)
}

func TestHealthBreachLookup(t *testing.T) {
	t.Parallel()

	var sawSecret atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.String()
		if strings.Contains(url, "password") || strings.Contains(url, "1E4C9B93F3F0682250B6CF8331B7EE68FD8") {
			sawSecret.Store(true)
		}

		segment := strings.TrimPrefix(r.URL.Path, "/")
		if segment == "5BAA6" {
			fmt.Fprint(w, "1E4C9B93F3F0682250B6CF8331B7EE68FD8:3861493\r\n")
			return
		}
		fmt.Fprint(w, "0018A45C4D1DEF81644B54AB7F969B88D65:2\r\n")
	}))
	defer srv.Close()

	e, _ := newTestEngine(t)
	require.NoError(t, e.InitWithKey(testKeyHex, "none"))

	id, err := e.AddEntry(Fields{Title: "Email", Username: "bob", Password: "password"})
	require.NoError(t, err)
	_, err = e.AddEntry(Fields{Title: "Bank", Password: "uncompromised-vault-pw-42!"})
	require.NoError(t, err)

	report, err := e.Health(context.Background(), health.NewBreachClient(srv.URL))
	require.NoError(t, err)

	require.False(t, report.BreachUnknown)
	require.Len(t, report.BreachedCredentials, 1)
	require.Equal(t, id, report.BreachedCredentials[0].EntryID)
	require.Equal(t, 3861493, report.BreachedCredentials[0].BreachCount)

	require.False(t, sawSecret.Load(), "nothing beyond the 5-char prefix may leave the device")
}

func TestHealthWhileLocked(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	require.NoError(t, e.InitWithKey(testKeyHex, "none"))
	e.Lock()

	_, err := e.Health(context.Background(), nil)
	require.ErrorIs(t, err, ErrLocked)
}
