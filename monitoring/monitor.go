// Package monitoring serves the results of simulations over HTTP while the
// CLI is running.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/monitoring/web"
)

// ErrServerRunning is returned when StartServer is called twice.
var ErrServerRunning = errors.New("monitor server already running")

const defaultProfileDuration = time.Second

type runEntry struct {
	id     string
	result *engine.Result
}

// Monitor keeps the results of finished runs and the progress of running
// ones, and serves them over HTTP.
type Monitor struct {
	logger          *slog.Logger
	portNumber      int
	profileDuration time.Duration

	runsLock sync.RWMutex
	runs     []runEntry

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		logger:          slog.Default(),
		profileDuration: defaultProfileDuration,
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 fall
// back to a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port",
			"port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger used to report the server address and errors.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterResult makes a finished run visible under the given ID.
// Registering an ID again replaces the earlier result.
func (m *Monitor) RegisterResult(id string, result *engine.Result) {
	m.runsLock.Lock()
	defer m.runsLock.Unlock()

	for i := range m.runs {
		if m.runs[i].id == id {
			m.runs[i].result = result
			return
		}
	}

	m.runs = append(m.runs, runEntry{id: id, result: result})
}

// Result returns the result registered under the ID.
func (m *Monitor) Result(id string) (*engine.Result, bool) {
	m.runsLock.RLock()
	defer m.runsLock.RUnlock()

	for _, r := range m.runs {
		if r.id == id {
			return r.result, true
		}
	}

	return nil, false
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the API and the web page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/runs", m.listRuns)
	r.HandleFunc("/api/run/{id}", m.runDetails)
	r.HandleFunc("/api/run/{id}/timeline", m.runTimeline)
	r.HandleFunc("/api/run/{id}/field/{json}", m.runFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the address it
// listens on.
func (m *Monitor) StartServer() (string, error) {
	if m.server != nil {
		return "", ErrServerRunning
	}

	listener, err := net.Listen("tcp", "localhost:"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	addr := listener.Addr().String()
	m.logger.Info("monitoring simulation", "url", "http://"+addr)

	server := m.server
	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor server stopped", "error", err)
		}
	}()

	return addr, nil
}

// StopServer shuts the server down. It is a no-op if the server is not
// running.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	err := m.server.Shutdown(ctx)
	m.server = nil

	return err
}

type runSummary struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Policy      string  `json:"policy"`
	Preemptive  bool    `json:"preemptive"`
	Horizon     int     `json:"horizon"`
	SuccessRate float64 `json:"success_rate"`
	Missed      int     `json:"missed"`
	Lateness    int     `json:"total_lateness"`
}

func (m *Monitor) listRuns(w http.ResponseWriter, _ *http.Request) {
	m.runsLock.RLock()
	summaries := make([]runSummary, 0, len(m.runs))
	for _, r := range m.runs {
		summaries = append(summaries, runSummary{
			ID:          r.id,
			Label:       r.result.Label(),
			Policy:      r.result.Policy,
			Preemptive:  r.result.Preemptive,
			Horizon:     r.result.Horizon,
			SuccessRate: r.result.Statistics.SuccessRate,
			Missed:      r.result.Statistics.Missed,
			Lateness:    r.result.Statistics.TotalLateness,
		})
	}
	m.runsLock.RUnlock()

	writeJSON(w, summaries)
}

func (m *Monitor) runDetails(w http.ResponseWriter, r *http.Request) {
	result := m.findResultOr404(w, mux.Vars(r)["id"])
	if result == nil {
		return
	}

	writeJSON(w, result)
}

func (m *Monitor) runTimeline(w http.ResponseWriter, r *http.Request) {
	result := m.findResultOr404(w, mux.Vars(r)["id"])
	if result == nil {
		return
	}

	writeJSON(w, result.Timeline)
}

type fieldReq struct {
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) runFieldValue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	req := fieldReq{}
	if err := json.Unmarshal([]byte(vars["json"]), &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := m.findResultOr404(w, vars["id"])
	if result == nil {
		return
	}

	var fields []string
	if req.FieldName != "" {
		fields = strings.Split(req.FieldName, ".")

		if _, err := walkFields(result, fields); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(result)
	serializer.SetMaxDepth(1)

	if len(fields) > 0 {
		if err := serializer.SetEntryPoint(fields); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	buf := bytes.NewBuffer(nil)
	if err := serializer.Serialize(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

// fieldError reports a field path that does not lead anywhere.
type fieldError struct {
	path string
}

func (e fieldError) Error() string {
	return fmt.Sprintf("field %q not found", e.path)
}

// walkFields follows a path of exported field names and slice indices from
// root.
func walkFields(root any, fieldNames []string) (reflect.Value, error) {
	elem := reflect.ValueOf(root)
	path := strings.Join(fieldNames, ".")

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			if elem.IsNil() {
				return elem, fieldError{path: path}
			}

			elem = elem.Elem()
		case reflect.Struct:
			elem = elem.FieldByName(fieldNames[0])
			if !elem.IsValid() {
				return elem, fieldError{path: path}
			}

			fieldNames = fieldNames[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldError{path: path}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldError{path: path}
		}
	}

	if elem.Kind() == reflect.Ptr && !elem.IsNil() {
		elem = elem.Elem()
	}

	return elem, nil
}

func (m *Monitor) findResultOr404(
	w http.ResponseWriter,
	id string,
) *engine.Result {
	result, ok := m.Result(id)
	if !ok {
		http.Error(w, "Run not found", http.StatusNotFound)
		return nil
	}

	return result
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
