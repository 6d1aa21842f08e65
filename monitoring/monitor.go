// Package monitoring serves the allocator as a small web application. It is
// the only external interface of the simulator: it validates user input,
// drives the allocator, and renders the resulting block sequence.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling.
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/bestfitsim/alloc"
	"github.com/sarchlab/bestfitsim/datarecording"
	"github.com/sarchlab/bestfitsim/monitoring/web"
	"github.com/sarchlab/bestfitsim/tracing"
)

// Monitor turns the allocator into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	manager    alloc.Manager
	recorder   datarecording.DataRecorder
	reader     datarecording.DataReader
	portNumber int
	noBrowser  bool
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithoutBrowser prevents the monitor from opening the UI in a browser.
func (m *Monitor) WithoutBrowser() *Monitor {
	m.noBrowser = true
	return m
}

// RegisterManager registers the allocator to be monitored.
func (m *Monitor) RegisterManager(manager alloc.Manager) {
	m.manager = manager
}

// RegisterDataRecorder registers the recorder that buffers the operation log,
// so that the log can be flushed before history queries.
func (m *Monitor) RegisterDataRecorder(r datarecording.DataRecorder) {
	m.recorder = r
}

// RegisterDataReader registers the reader that serves the operation history.
func (m *Monitor) RegisterDataReader(r datarecording.DataReader) {
	m.reader = r
	m.reader.MapTable(tracing.OpTableName, tracing.OpRecord{})
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/allocate", m.allocate).Methods(http.MethodPost)
	r.HandleFunc("/api/deallocate", m.deallocate).Methods(http.MethodPost)
	r.HandleFunc("/api/snapshot", m.snapshot)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/history", m.history)
	r.HandleFunc("/api/inspect", m.inspect)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	if !m.noBrowser {
		go func() {
			_ = browser.OpenURL(url)
		}()
	}

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

type blockRsp struct {
	Size      int  `json:"size"`
	Allocated bool `json:"allocated"`
}

type operationRsp struct {
	Index  int        `json:"index"`
	Blocks []blockRsp `json:"blocks"`
}

type errorRsp struct {
	Error string `json:"error"`
}

// parseSize extracts and validates the size parameter. A missing, non-numeric
// or non-positive size is a caller-side validation error and never reaches
// the allocator.
func parseSize(w http.ResponseWriter, r *http.Request) (int, bool) {
	sizeStr := r.URL.Query().Get("size")

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		writeJSONStatus(w, http.StatusBadRequest, errorRsp{
			Error: "invalid size " + strconv.Quote(sizeStr) +
				", must be a positive integer",
		})
		return 0, false
	}

	return size, true
}

func (m *Monitor) allocate(w http.ResponseWriter, r *http.Request) {
	size, ok := parseSize(w, r)
	if !ok {
		return
	}

	index, err := m.manager.Allocate(size)
	if err != nil {
		writeJSONStatus(w, http.StatusConflict, errorRsp{Error: err.Error()})
		return
	}

	writeJSON(w, operationRsp{
		Index:  index,
		Blocks: snapshotRsp(m.manager),
	})
}

func (m *Monitor) deallocate(w http.ResponseWriter, r *http.Request) {
	size, ok := parseSize(w, r)
	if !ok {
		return
	}

	index, err := m.manager.Deallocate(size)
	if err != nil {
		writeJSONStatus(w, http.StatusConflict, errorRsp{Error: err.Error()})
		return
	}

	writeJSON(w, operationRsp{
		Index:  index,
		Blocks: snapshotRsp(m.manager),
	})
}

func (m *Monitor) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, snapshotRsp(m.manager))
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.manager.Stats())
}

func (m *Monitor) history(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			writeJSONStatus(w, http.StatusBadRequest,
				errorRsp{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	if m.recorder != nil {
		m.recorder.Flush()
	}

	records, totalCount, err := m.reader.Query(
		r.Context(),
		tracing.OpTableName,
		datarecording.QueryParams{
			OrderBy: "Seq DESC",
			Limit:   limit,
		})
	dieOnErr(err)

	rsp := struct {
		TotalCount int   `json:"total_count"`
		Records    []any `json:"records"`
	}{
		TotalCount: totalCount,
		Records:    records,
	}
	if rsp.Records == nil {
		rsp.Records = []any{}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) inspect(w http.ResponseWriter, _ *http.Request) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.manager)
	serializer.SetMaxDepth(2)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func snapshotRsp(manager alloc.Manager) []blockRsp {
	blocks := manager.Snapshot()

	rsp := make([]blockRsp, len(blocks))
	for i, b := range blocks {
		rsp[i] = blockRsp{Size: b.Size, Allocated: b.Allocated}
	}

	return rsp
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
