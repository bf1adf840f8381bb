package dynu

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type HTTPMock struct {
	pattern  string
	status   int
	filename string
	check    func(t *testing.T, req *http.Request)
}

func setupTest(t *testing.T, mocks []HTTPMock) *Client {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	for _, m := range mocks {
		mux.HandleFunc(m.pattern, func(rw http.ResponseWriter, req *http.Request) {
			if m.check != nil {
				m.check(t, req)
			}
			if m.filename == "" {
				rw.WriteHeader(m.status)
				return
			}

			file, err := os.Open(filepath.Join("fixtures", m.filename))
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			defer func() { _ = file.Close() }()

			rw.Header().Set("Content-Type", "application/json")
			rw.WriteHeader(m.status)
			_, _ = io.Copy(rw, file)
		})
	}

	client := NewClient()
	client.HTTPClient = server.Client()
	require.NoError(t, client.SetBaseURL(server.URL+"/v2"))

	return client
}

var testToken = Token{Value: "abc"}

func checkBearer(t *testing.T, req *http.Request) {
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func Test_Exchange(t *testing.T) {
	client := setupTest(t, []HTTPMock{{
		pattern:  "GET /v2/oauth2/token",
		status:   http.StatusOK,
		filename: "token.json",
		check: func(t *testing.T, req *http.Request) {
			user, pass, ok := req.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client-id", user)
			assert.Equal(t, "s3cret", pass)
			assert.Equal(t, "application/json", req.Header.Get("Accept"))
		},
	}})

	token, err := client.Exchange(context.Background(), Credentials{ClientID: "client-id", Secret: "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, "abc", token.Value)
	assert.False(t, token.ObtainedAt.IsZero())
	assert.Equal(t, int64(86400), int64(token.ExpiresIn.Seconds()))
}

func Test_Exchange_errors(t *testing.T) {
	testCases := []struct {
		desc      string
		mock      HTTPMock
		status    int
		temporary bool
	}{
		{
			desc:   "unauthorized",
			mock:   HTTPMock{pattern: "GET /v2/oauth2/token", status: http.StatusUnauthorized, filename: "error_unauthorized.json"},
			status: http.StatusUnauthorized,
		},
		{
			desc:      "unavailable",
			mock:      HTTPMock{pattern: "GET /v2/oauth2/token", status: http.StatusServiceUnavailable},
			status:    http.StatusServiceUnavailable,
			temporary: true,
		},
		{
			desc:   "missing token field",
			mock:   HTTPMock{pattern: "GET /v2/oauth2/token", status: http.StatusOK, filename: "token_empty.json"},
			status: http.StatusOK,
		},
	}

	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			client := setupTest(t, []HTTPMock{test.mock})

			_, err := client.Exchange(context.Background(), Credentials{ClientID: "id", Secret: "secret"})

			var authErr *AuthError
			require.True(t, errors.As(err, &authErr), "got %v", err)
			assert.Equal(t, test.status, authErr.StatusCode)
			assert.Equal(t, test.temporary, authErr.Temporary())
		})
	}
}

func Test_Exchange_unauthorizedReason(t *testing.T) {
	client := setupTest(t, []HTTPMock{{pattern: "GET /v2/oauth2/token", status: http.StatusUnauthorized, filename: "error_unauthorized.json"}})

	_, err := client.Exchange(context.Background(), Credentials{ClientID: "id", Secret: "secret"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid client credentials.")
}

func Test_Exchange_missingCredentials(t *testing.T) {
	client := NewClient()

	_, err := client.Exchange(context.Background(), Credentials{ClientID: "id"})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, authErr.Temporary())
}

func Test_ListZones(t *testing.T) {
	client := setupTest(t, []HTTPMock{{
		pattern:  "GET /v2/dns",
		status:   http.StatusOK,
		filename: "zones.json",
		check:    checkBearer,
	}})

	zones, err := client.ListZones(context.Background(), testToken)
	require.NoError(t, err)

	require.Len(t, zones, 1)
	assert.Equal(t, int64(9876543), zones[0].ID)
	assert.Equal(t, "mcserver.freeddns.org", zones[0].Name)
}

func Test_ListZones_bareArray(t *testing.T) {
	client := setupTest(t, []HTTPMock{{pattern: "GET /v2/dns", status: http.StatusOK, filename: "zones_array.json"}})

	zones, err := client.ListZones(context.Background(), testToken)
	require.NoError(t, err)

	assert.Equal(t, []Zone{{ID: 1, Name: "alpha.example"}, {ID: 2, Name: "beta.example"}}, zones)
}

func Test_ListZones_malformed(t *testing.T) {
	client := setupTest(t, []HTTPMock{{pattern: "GET /v2/dns", status: http.StatusOK, filename: "record_updated.json"}})

	_, err := client.ListZones(context.Background(), testToken)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "list zones", provErr.Op)
	assert.False(t, provErr.Temporary())
}

func Test_ListZones_status(t *testing.T) {
	client := setupTest(t, []HTTPMock{{pattern: "GET /v2/dns", status: http.StatusBadGateway}})

	_, err := client.ListZones(context.Background(), testToken)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusBadGateway, provErr.StatusCode)
	assert.True(t, provErr.Temporary())
}

func Test_ListRecords(t *testing.T) {
	client := setupTest(t, []HTTPMock{{
		pattern:  "GET /v2/dns/9876543/record",
		status:   http.StatusOK,
		filename: "records.json",
		check:    checkBearer,
	}})

	records, err := client.ListRecords(context.Background(), testToken, 9876543)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "mcngrok", records[1].NodeName)
	assert.Equal(t, RecordTypeA, records[1].RecordType)
	assert.Equal(t, "3.134.125.175", records[1].CurrentValue())
	assert.Equal(t, RecordTypeSRV, records[2].RecordType)
	assert.Equal(t, "mcngrok.mcserver.freeddns.org:17523", records[2].CurrentValue())
}

func Test_UpdateRecord(t *testing.T) {
	var got map[string]any
	client := setupTest(t, []HTTPMock{{
		pattern:  "POST /v2/dns/9876543/record/102",
		status:   http.StatusOK,
		filename: "record_updated.json",
		check: func(t *testing.T, req *http.Request) {
			checkBearer(t, req)
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		},
	}})

	payload := NewServiceUpdate("_minecraft._tcp", "mcngrok.mcserver.freeddns.org", 41234, 10, 5, 0)
	err := client.UpdateRecord(context.Background(), testToken, 9876543, 102, payload)
	require.NoError(t, err)

	want := map[string]any{
		"nodeName":   "_minecraft._tcp",
		"recordType": "SRV",
		"ttl":        float64(120),
		"state":      true,
		"group":      "",
		"host":       "mcngrok.mcserver.freeddns.org",
		"priority":   float64(10),
		"weight":     float64(5),
		"port":       float64(41234),
	}
	assert.Equal(t, want, got)
}

func Test_UpdateRecord_addressPayload(t *testing.T) {
	var got map[string]any
	client := setupTest(t, []HTTPMock{{
		pattern: "POST /v2/dns/9876543/record/101",
		status:  http.StatusNoContent,
		check: func(t *testing.T, req *http.Request) {
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		},
	}})

	err := client.UpdateRecord(context.Background(), testToken, 9876543, 101, NewAddressUpdate("mcngrok", "203.0.113.5", 120))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"nodeName":    "mcngrok",
		"recordType":  "A",
		"ttl":         float64(120),
		"state":       true,
		"group":       "",
		"ipv4Address": "203.0.113.5",
	}, got)
}

func Test_UpdateRecord_error(t *testing.T) {
	client := setupTest(t, []HTTPMock{{pattern: "POST /v2/dns/1/record/2", status: http.StatusUnauthorized, filename: "error_unauthorized.json"}})

	err := client.UpdateRecord(context.Background(), testToken, 1, 2, NewAddressUpdate("mcngrok", "203.0.113.5", 0))

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
	assert.Equal(t, "update A record 2", provErr.Op)
	assert.Contains(t, provErr.Reason, "Invalid client credentials.")
}

func Test_requestWithoutToken(t *testing.T) {
	client := NewClient()

	_, err := client.ListZones(context.Background(), Token{})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Zero(t, provErr.StatusCode)
}

func Test_SetBaseURL(t *testing.T) {
	client := NewClient()

	assert.Error(t, client.SetBaseURL("not a url"))
	assert.NoError(t, client.SetBaseURL("https://api.example.test/v2/"))
	assert.Equal(t, "https://api.example.test/v2/dns", client.baseURL.JoinPath("dns").String())
}
