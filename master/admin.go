package master

import (
	"encoding/json"
	"net/http"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/telemetry"
)

// version is the string every version/healthcheck endpoint reports. It is
// not derived from build info because this module has no release process
// of its own yet.
const version = "stormforge/0.1.0"

// Resolver looks up a LoadTest by its dotted module name, the way the
// admin API's POST body names scenarios ("Dotted.Module"). A real
// deployment wires this to its scenario registry; AdminServer has no
// opinion on how scenarios are discovered.
type Resolver interface {
	Resolve(name string, options core.Config) (LoadTest, error)
}

// AdminServer implements spec §6's HTTP administration surface: GET /,
// GET /healthcheck, GET /version, GET /load_tests, POST /load_tests. Only
// the /load_tests routes sit behind Basic auth with a configured realm.
type AdminServer struct {
	Master   *Master
	Resolver Resolver
	Realm    string
	Username string
	Password string
	Logger   core.Logger
}

func (a *AdminServer) logger() core.Logger {
	if a.Logger == nil {
		return &core.NoOpLogger{}
	}
	return a.Logger
}

func (a *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleHealth)
	mux.HandleFunc("/healthcheck", a.handleHealth)
	mux.HandleFunc("/version", a.handleVersion)
	mux.HandleFunc("/load_tests", a.requireAuth(a.handleLoadTests))

	traced := telemetry.TracingMiddlewareWithConfig("stormforge-admin", &telemetry.TracingMiddlewareConfig{
		ExcludedPaths: []string{"/", "/healthcheck"},
	})
	return traced(mux)
}

// handleHealth answers GET / and GET /healthcheck. ServeMux treats "/" as a
// catch-all subtree pattern, so every unmatched path would otherwise land
// here too; guard on the exact paths and 404 anything else, per spec §6's
// "Unmatched" route behavior.
func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/healthcheck" {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(version))
}

func (a *AdminServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(version))
}

func (a *AdminServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != a.Username || pass != a.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+a.Realm+`"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type loadTestRequest struct {
	Test    string                 `json:"test"`
	Options map[string]interface{} `json:"options"`
}

type postBody struct {
	LoadTests []loadTestRequest `json:"load_tests"`
}

func (a *AdminServer) handleLoadTests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listLoadTests(w, r)
	case http.MethodPost:
		a.scheduleLoadTests(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (a *AdminServer) listLoadTests(w http.ResponseWriter, r *http.Request) {
	running := a.Master.RunningLoadTests()
	writeJSON(w, http.StatusOK, map[string]interface{}{"load_tests": running})
}

func (a *AdminServer) scheduleLoadTests(w http.ResponseWriter, r *http.Request) {
	var body postBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
		return
	}

	var scheduled []string
	for _, entry := range body.LoadTests {
		lt, err := a.Resolver.Resolve(entry.Test, core.Config(entry.Options))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
			return
		}
		taskID := a.Master.Schedule(r.Context(), lt, nil)
		scheduled = append(scheduled, taskID)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"scheduled": scheduled})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
