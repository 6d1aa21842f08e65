package simulation

import (
	"github.com/rs/xid"

	"github.com/sarchlab/bestfitsim/alloc"
	"github.com/sarchlab/bestfitsim/datarecording"
	"github.com/sarchlab/bestfitsim/monitoring"
	"github.com/sarchlab/bestfitsim/tracing"
)

// DefaultCapacity is the total memory of the reference configuration, in
// capacity units (KB).
const DefaultCapacity = 1000

// Builder can be used to build a simulation.
type Builder struct {
	capacity       int
	monitorOn      bool
	monitorPort    int
	browserOn      bool
	outputFileName string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		capacity:  DefaultCapacity,
		monitorOn: true,
		browserOn: true,
	}
}

// WithCapacity sets the total memory capacity of the allocator.
func (b Builder) WithCapacity(capacity int) Builder {
	b.capacity = capacity
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithoutBrowser prevents the monitor from opening the UI in a browser.
func (b Builder) WithoutBrowser() Builder {
	b.browserOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.capacity <= 0 {
		panic("simulation capacity must be positive")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{}
	s.id = xid.New().String()

	s.outputPath = b.outputFileName
	if s.outputPath == "" {
		s.outputPath = "bestfitsim_" + s.id
	}
	s.dataRecorder = datarecording.NewRecorder(s.outputPath)

	s.manager = alloc.NewManager("Memory", b.capacity)

	s.opTracer = tracing.NewOpTracer(s.dataRecorder)
	s.manager.AcceptHook(s.opTracer)

	if b.monitorOn {
		s.dataReader = datarecording.NewReader(s.outputPath)

		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		if !b.browserOn {
			s.monitor.WithoutBrowser()
		}
		s.monitor.RegisterManager(s.manager)
		s.monitor.RegisterDataRecorder(s.dataRecorder)
		s.monitor.RegisterDataReader(s.dataReader)
		s.monitor.StartServer()
	}

	return s
}
