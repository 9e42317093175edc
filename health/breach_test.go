package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// SHA-1("password"), the literal from the HIBP corpus.
const (
	passwordSHA1   = "5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8"
	passwordPrefix = "5BAA6"
	passwordSuffix = "1E4C9B93F3F0682250B6CF8331B7EE68FD8"
)

func TestHash(t *testing.T) {
	t.Parallel()

	hashed := Hash([]Credential{
		{EntryID: "x", Title: "GitHub", Username: "alice", Password: "password"},
		{EntryID: "y", Title: "Empty", Password: ""},
	})

	require.Len(t, hashed, 1, "empty passwords are skipped")
	require.Equal(t, passwordSHA1, hashed[0].SHA1)
}

func TestCheckKAnonymity(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		// Only the 5-character prefix may reach the server
		segment := strings.TrimPrefix(r.URL.Path, "/")
		require.Len(t, segment, 5)
		require.Equal(t, passwordPrefix, segment)
		require.NotContains(t, r.URL.String(), passwordSuffix)

		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:2\r\n")
		fmt.Fprintf(w, "%s:3861493\r\n", passwordSuffix)
		fmt.Fprintf(w, "011053FD0102E94D6AE2F8B83D76FAF94F6:1\r\n")
	}))
	defer srv.Close()

	client := NewBreachClient(srv.URL)
	hashed := Hash([]Credential{
		{EntryID: "x", Title: "GitHub", Username: "alice", Password: "password"},
	})

	breached, unavailable := client.Check(context.Background(), hashed)
	require.False(t, unavailable)
	require.Len(t, breached, 1)
	require.Equal(t, "x", breached[0].EntryID)
	require.Equal(t, 3861493, breached[0].BreachCount)
	require.EqualValues(t, 1, requests.Load(), "one request per distinct prefix")
}

func TestCheckNotBreached(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0018A45C4D1DEF81644B54AB7F969B88D65:2\r\n")
	}))
	defer srv.Close()

	client := NewBreachClient(srv.URL)
	breached, unavailable := client.Check(context.Background(), Hash([]Credential{
		{EntryID: "x", Password: "password"},
	}))

	require.False(t, unavailable)
	require.Empty(t, breached)
}

func TestCheckSharedPrefixOneRequest(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprintf(w, "%s:10\r\n", passwordSuffix)
	}))
	defer srv.Close()

	client := NewBreachClient(srv.URL)
	// two entries with the same password share a prefix
	breached, unavailable := client.Check(context.Background(), Hash([]Credential{
		{EntryID: "a", Password: "password"},
		{EntryID: "b", Password: "password"},
	}))

	require.False(t, unavailable)
	require.Len(t, breached, 2)
	require.EqualValues(t, 1, requests.Load())
}

func TestCheckRetriesOnce(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "%s:42\r\n", passwordSuffix)
	}))
	defer srv.Close()

	client := NewBreachClient(srv.URL)
	breached, unavailable := client.Check(context.Background(), Hash([]Credential{
		{EntryID: "x", Password: "password"},
	}))

	require.False(t, unavailable)
	require.Len(t, breached, 1)
	require.EqualValues(t, 2, requests.Load())
}

func TestCheckUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening: every attempt fails

	client := NewBreachClient(srv.URL)
	breached, unavailable := client.Check(context.Background(), Hash([]Credential{
		{EntryID: "x", Password: "password"},
	}))

	require.True(t, unavailable, "network failure is unknown, not an error")
	require.Empty(t, breached)
}
