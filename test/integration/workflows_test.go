//go:build integration

package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "dpq3b8ki_YkBOQK2UPAfzL0MF829OTw4_Boy5SlfliI"

type capturedRequest struct {
	Method        string
	Path          string
	Body          string
	Authorization string
	Header        http.Header
}

// recordingServer answers every request with status and body and keeps the
// requests it saw.
type recordingServer struct {
	*httptest.Server

	mutex    sync.Mutex
	requests []capturedRequest
}

func newRecordingServer(t *testing.T, status int, body string) *recordingServer {
	t.Helper()

	server := &recordingServer{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)

		server.mutex.Lock()
		server.requests = append(server.requests, capturedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Body:          string(data),
			Authorization: r.Header.Get("Authorization"),
			Header:        r.Header.Clone(),
		})
		server.mutex.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func (s *recordingServer) last(t *testing.T) capturedRequest {
	t.Helper()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	require.NotEmpty(t, s.requests, "server saw no request")

	return s.requests[len(s.requests)-1]
}

func setupRunner(t *testing.T, host string) *CommandRunner {
	t.Helper()

	config := LoadTestConfig()
	config.SkipIfMissingBinary(t)

	runner := NewCommandRunner(config, t)
	runner.MustRun("config", "set", "hosts.money", host)
	runner.MustRun("config", "set", "user_agent", "CoreAPI.SDK/Integration")

	return runner
}

func TestCoreAPIWorkflow_PerformQuery(t *testing.T) {
	server := newRecordingServer(t, http.StatusOK, `{"account":"4100","balance":"10.00"}`)
	runner := setupRunner(t, server.URL)

	result, err := runner.RunJSON("perform", "/api/account-info",
		"--host-key", "money",
		"-p", "records=3",
		"-H", "X-Request-Source=integration")
	require.NoError(t, err)

	assert.InDelta(t, 200, result["status_code"], 0)
	assert.JSONEq(t, `{"account":"4100","balance":"10.00"}`, result["body"].(string))
	assert.NotContains(t, result, "error")

	request := server.last(t)
	assert.Equal(t, http.MethodPost, request.Method)
	assert.Equal(t, "/api/account-info", request.Path)
	assert.Equal(t, "records=3", request.Body)
	assert.Equal(t, "integration", request.Header.Get("X-Request-Source"))
	assert.Equal(t, "CoreAPI.SDK/Integration", request.Header.Get("User-Agent"))
}

func TestCoreAPIWorkflow_PerformSigned(t *testing.T) {
	server := newRecordingServer(t, http.StatusOK, `{"status":"success"}`)
	runner := setupRunner(t, server.URL)

	runner.MustRun("config", "set", "signing_key", testSigningKey)
	runner.MustRun("config", "set", "client_id", "integration-app")

	_, err := runner.RunJSON("perform", "/api/request-payment",
		"--host-key", "money",
		"--encoding", "jws",
		"-p", "amount=10.00")
	require.NoError(t, err)

	request := server.last(t)
	assert.Equal(t, 2, strings.Count(request.Body, "."), "body should be a compact JWS: %s", request.Body)
}

func TestCoreAPIWorkflow_PerformAPIError(t *testing.T) {
	server := newRecordingServer(t, http.StatusBadRequest, `{"error":"illegal_param_amount"}`)
	runner := setupRunner(t, server.URL)

	result, err := runner.RunJSON("perform", "/api/request-payment", "--host-key", "money", "-p", "amount=-1")
	require.Error(t, err)

	errorInfo, ok := result["error"].(map[string]any)
	require.True(t, ok, "expected an error object: %v", result)
	assert.Equal(t, "api", errorInfo["type"])
	assert.Equal(t, "illegalParameter", errorInfo["kind"])
	assert.Equal(t, "amount", errorInfo["parameter"])
}

func TestCoreAPIWorkflow_TokenLifecycle(t *testing.T) {
	server := newRecordingServer(t, http.StatusUnauthorized, `{"error":"invalid_token"}`)
	runner := setupRunner(t, server.URL)

	runner.MustRun("token", "set", "410012345.ABCD", "--expires-in", "1h")

	status, err := runner.RunJSON("token", "status")
	require.NoError(t, err)
	assert.Equal(t, true, status["authenticated"])
	assert.Equal(t, "Valid", status["expiry_status"])

	result, err := runner.RunJSON("perform", "/api/account-info", "--host-key", "money")
	require.Error(t, err)
	assert.Equal(t, "invalidToken", result["error"].(map[string]any)["kind"])
	assert.Equal(t, "Bearer 410012345.ABCD", server.last(t).Authorization)

	status, err = runner.RunJSON("token", "status")
	require.NoError(t, err)
	assert.Equal(t, "No token", status["status"])
}

func TestCoreAPIWorkflow_Sign(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingBinary(t)

	runner := NewCommandRunner(config, t)

	result, err := runner.RunJSON("sign", "--key", testSigningKey, "--instance-id", "device-1", "-p", "orderId=42")
	require.NoError(t, err)

	assert.Equal(t, "instanceId:device-1", result["issuer"])
	assert.JSONEq(t, `{"orderId":"42"}`, result["payload"].(string))
	assert.Contains(t, result["header"], `"alg":"ES256"`)
}

func TestCoreAPIWorkflow_Classify(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingBinary(t)

	runner := NewCommandRunner(config, t)

	stdout, _, err := runner.RunWithInput(`{"error":"technical_error","next_retry":1500}`, "--output", "json", "classify", "500")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"kind": "technicalError"`)
	assert.Contains(t, stdout, `"retry_after_ms": 1500`)
}

func TestCoreAPIWorkflow_OutputFormats(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingBinary(t)

	runner := NewCommandRunner(config, t)

	jsonOut := runner.MustRun("--output", "json", "version")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(jsonOut), "{"), jsonOut)

	yamlOut := runner.MustRun("--output", "yaml", "version")
	assert.Contains(t, yamlOut, "version:")

	tableOut := runner.MustRun("version")
	assert.Contains(t, strings.ToUpper(tableOut), "PROPERTY")
}

func TestCoreAPIWorkflow_ErrorScenarios(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingBinary(t)

	runner := NewCommandRunner(config, t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no hosts", args: []string{"hosts"}, want: "no hosts configured"},
		{name: "no target", args: []string{"perform", "/api/ping"}, want: "--url or --host-key"},
		{name: "bad status", args: []string{"classify", "42", "{}"}, want: "invalid HTTP status code"},
		{name: "bad encoding", args: []string{"perform", "--host-key", "money", "--encoding", "xml"}, want: "invalid encoding"},
		{name: "unknown config key", args: []string{"config", "set", "colour", "blue"}, want: "unknown configuration key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runner.Run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, stderr, tt.want)
		})
	}
}
