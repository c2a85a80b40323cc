//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/oncallhq/incident-deck/internal/testutil"
	"github.com/stretchr/testify/require"
)

// incidentPayload is the decoded shape of an incident in API responses.
type incidentPayload struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Status     string    `json:"status"`
	Judgment   string    `json:"judgment"`
	Content    string    `json:"content"`
	Assignee   string    `json:"assignee"`
	Priority   string    `json:"priority"`
	Responses  []struct {
		ID        string `json:"id"`
		Seq       int    `json:"seq"`
		Content   string `json:"content"`
		Responder string `json:"responder"`
	} `json:"responses"`
	Related []struct {
		ID       int64  `json:"id"`
		Status   string `json:"status"`
		Content  string `json:"content"`
		Priority string `json:"priority"`
	} `json:"related_incidents"`
}

type incidentResponse struct {
	Data incidentPayload `json:"data"`
}

type incidentListResponse struct {
	Data []incidentPayload `json:"data"`
}

// createTestIncident creates an incident and returns its id. The client
// must be logged in with at least operator role.
func createTestIncident(t *testing.T, client *testutil.Client, content string, opts ...incidentOption) int64 {
	t.Helper()

	payload := map[string]interface{}{
		"judgment": "requires_action",
		"content":  content,
		"priority": "medium",
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/incidents", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var result incidentResponse
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

type incidentOption func(map[string]interface{})

func withJudgment(judgment string) incidentOption {
	return func(m map[string]interface{}) {
		m["judgment"] = judgment
	}
}

func withPriority(priority string) incidentOption {
	return func(m map[string]interface{}) {
		m["priority"] = priority
	}
}

func withOccurredAt(occurredAt time.Time) incidentOption {
	return func(m map[string]interface{}) {
		m["occurred_at"] = occurredAt.Format(time.RFC3339)
	}
}

// fileResponse posts an update to an incident's audit trail.
func fileResponse(t *testing.T, client *testutil.Client, id int64, content string) incidentPayload {
	t.Helper()

	resp, err := client.POST(fmt.Sprintf("/api/v1/incidents/%d/responses", id), map[string]string{
		"content": content,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	var result incidentResponse
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// getIncident fetches one incident.
func getIncident(t *testing.T, client *testutil.Client, id int64) incidentPayload {
	t.Helper()

	resp, err := client.GET(fmt.Sprintf("/api/v1/incidents/%d", id))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result incidentResponse
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// listIncidents fetches incidents with the given query string.
func listIncidents(t *testing.T, client *testutil.Client, query string) []incidentPayload {
	t.Helper()

	path := "/api/v1/incidents"
	if query != "" {
		path += "?" + query
	}
	resp, err := client.GET(path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result incidentListResponse
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}
