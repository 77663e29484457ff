package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-token")
	c.Host = srv.URL
	return c
}

func TestAuthHeaderAndUserAgent(t *testing.T) {
	assert := assert.New(t)
	var gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(204)
	})

	require.NoError(t, c.DeleteMessage(context.Background(), "chan-1", "msg-1"))
	assert.Equal("Bot test-token", gotAuth)
}

func TestDeleteMessagesChunking(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var singles int
	var bulkSizes []int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			singles++
			w.WriteHeader(204)
			return
		}
		var body struct {
			Messages []string `json:"messages"`
		}
		require.NoError(json.NewDecoder(r.Body).Decode(&body))
		bulkSizes = append(bulkSizes, len(body.Messages))
		w.WriteHeader(204)
	})

	ids := make([]string, 101)
	for i := range ids {
		ids[i] = fmt.Sprintf("msg-%d", i)
	}
	require.NoError(c.DeleteMessages(context.Background(), "chan-1", ids))

	// 100 in one bulk call, the leftover single via plain delete
	assert.Equal([]int{100}, bulkSizes)
	assert.Equal(1, singles)
}

func TestRecentMessages(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("50", r.URL.Query().Get("limit"))
		msgs := []Message{
			{ID: "m2", ChannelID: "chan-1", Timestamp: ts.Add(time.Minute)},
			{ID: "m1", ChannelID: "chan-1", Timestamp: ts},
		}
		_ = json.NewEncoder(w).Encode(msgs)
	})

	refs, err := c.RecentMessages(context.Background(), "chan-1", 50)
	require.NoError(err)
	require.Len(refs, 2)
	assert.Equal("m2", refs[0].ID)
	assert.True(refs[1].Timestamp.Equal(ts))
}

func TestTimeoutMemberAuditReason(t *testing.T) {
	assert := assert.New(t)
	var gotReason string
	var gotBody map[string]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReason = r.Header.Get("X-Audit-Log-Reason")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(200)
		fmt.Fprint(w, "{}")
	})

	require.NoError(t, c.TimeoutMember(context.Background(), "guild-1", "user-1", 10*time.Minute, "Spam"))
	assert.Equal("Spam", gotReason)
	assert.NotEmpty(gotBody["communication_disabled_until"])
}

func TestAPIErrorSurfaced(t *testing.T) {
	assert := assert.New(t)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(403)
		fmt.Fprint(w, `{"message": "Missing Permissions"}`)
	})

	err := c.SendMessage(context.Background(), "chan-1", "hello")
	var apiErr *APIError
	assert.ErrorAs(err, &apiErr)
	assert.Equal(403, apiErr.StatusCode)
}

func TestInteractionOptions(t *testing.T) {
	assert := assert.New(t)
	data := InteractionData{
		Name: "delay",
		Options: []InteractionOption{
			{Name: "minutes", Value: float64(15)},
			{Name: "channel", Value: "chan-9"},
		},
	}
	mins, ok := data.IntOption("minutes")
	assert.True(ok)
	assert.Equal(15, mins)
	assert.Equal("chan-9", data.StringOption("channel"))
	_, ok = data.IntOption("missing")
	assert.False(ok)
}
