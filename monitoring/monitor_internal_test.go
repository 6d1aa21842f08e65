package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bestfitsim/alloc"
	"github.com/sarchlab/bestfitsim/datarecording"
	"github.com/sarchlab/bestfitsim/tracing"
)

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		manager alloc.Manager
	)

	BeforeEach(func() {
		manager = alloc.NewManager("Memory", 1000)

		m = NewMonitor()
		m.RegisterManager(manager)
	})

	request := func(
		handler func(http.ResponseWriter, *http.Request),
		target string,
	) *httptest.ResponseRecorder {
		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodPost, target, nil))
		return recorder
	}

	It("should serve the snapshot", func() {
		manager.Allocate(300)

		rsp := request(m.snapshot, "/api/snapshot")

		Expect(rsp.Code).To(Equal(http.StatusOK))

		var blocks []blockRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &blocks)).To(Succeed())
		Expect(blocks).To(Equal([]blockRsp{
			{Size: 300, Allocated: true},
			{Size: 700},
		}))
	})

	It("should allocate", func() {
		rsp := request(m.allocate, "/api/allocate?size=300")

		Expect(rsp.Code).To(Equal(http.StatusOK))

		var op operationRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &op)).To(Succeed())
		Expect(op.Index).To(Equal(0))
		Expect(op.Blocks).To(HaveLen(2))
	})

	It("should deallocate", func() {
		manager.Allocate(300)

		rsp := request(m.deallocate, "/api/deallocate?size=300")

		Expect(rsp.Code).To(Equal(http.StatusOK))

		var op operationRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &op)).To(Succeed())
		Expect(op.Blocks).To(Equal([]blockRsp{{Size: 1000}}))
	})

	It("should reject non-numeric sizes before they reach the allocator",
		func() {
			for _, target := range []string{
				"/api/allocate?size=abc",
				"/api/allocate?size=",
				"/api/allocate?size=0",
				"/api/allocate?size=-5",
			} {
				rsp := request(m.allocate, target)

				Expect(rsp.Code).To(Equal(http.StatusBadRequest))
			}

			Expect(manager.Snapshot()).To(Equal([]alloc.Block{{Size: 1000}}))
		})

	It("should surface allocation failures as conflicts", func() {
		rsp := request(m.allocate, "/api/allocate?size=2000")

		Expect(rsp.Code).To(Equal(http.StatusConflict))

		var e errorRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &e)).To(Succeed())
		Expect(e.Error).To(ContainSubstring("no suitable block"))
	})

	It("should surface deallocation failures as conflicts", func() {
		rsp := request(m.deallocate, "/api/deallocate?size=300")

		Expect(rsp.Code).To(Equal(http.StatusConflict))

		var e errorRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &e)).To(Succeed())
		Expect(e.Error).To(ContainSubstring("no allocated block"))
	})

	It("should serve the stats", func() {
		manager.Allocate(400)

		rsp := request(m.stats, "/api/stats")

		Expect(rsp.Code).To(Equal(http.StatusOK))

		var s alloc.Stats
		Expect(json.Unmarshal(rsp.Body.Bytes(), &s)).To(Succeed())
		Expect(s.FreeCapacity).To(Equal(600))
	})

	Context("with an operation log", func() {
		var (
			dbPath   string
			recorder datarecording.DataRecorder
			reader   datarecording.DataReader
		)

		BeforeEach(func() {
			dir, err := os.MkdirTemp("", "bestfitsim_monitor_test")
			Expect(err).NotTo(HaveOccurred())
			dbPath = filepath.Join(dir, "ops")

			recorder = datarecording.NewRecorder(dbPath)
			manager.AcceptHook(tracing.NewOpTracer(recorder))

			reader = datarecording.NewReader(dbPath)
			m.RegisterDataRecorder(recorder)
			m.RegisterDataReader(reader)
		})

		AfterEach(func() {
			reader.Close()
			recorder.Close()
			os.RemoveAll(filepath.Dir(dbPath))
		})

		It("should serve the operation history", func() {
			manager.Allocate(300)
			manager.Allocate(200)
			manager.Deallocate(200)

			rsp := request(m.history, "/api/history?limit=2")

			Expect(rsp.Code).To(Equal(http.StatusOK))

			var body struct {
				TotalCount int                `json:"total_count"`
				Records    []tracing.OpRecord `json:"records"`
			}
			Expect(json.Unmarshal(rsp.Body.Bytes(), &body)).To(Succeed())

			// alloc, alloc, dealloc, merge.
			Expect(body.TotalCount).To(Equal(4))
			Expect(body.Records).To(HaveLen(2))
			Expect(body.Records[0].Kind).To(Equal("merge"))
			Expect(body.Records[1].Kind).To(Equal("dealloc"))
		})

		It("should reject an invalid history limit", func() {
			rsp := request(m.history, "/api/history?limit=x")

			Expect(rsp.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
