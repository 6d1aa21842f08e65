// Package simulation assembles the allocator, the operation log, and the
// monitor into a runnable memory-management simulation.
package simulation

import (
	"github.com/sarchlab/bestfitsim/alloc"
	"github.com/sarchlab/bestfitsim/datarecording"
	"github.com/sarchlab/bestfitsim/monitoring"
	"github.com/sarchlab/bestfitsim/tracing"
)

// A Simulation provides the services required to run a memory-management
// simulation.
type Simulation struct {
	id         string
	outputPath string

	manager      alloc.Manager
	dataRecorder datarecording.DataRecorder
	dataReader   datarecording.DataReader
	opTracer     *tracing.OpTracer
	monitor      *monitoring.Monitor
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetManager returns the allocator used in the simulation.
func (s *Simulation) GetManager() alloc.Manager {
	return s.manager
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil when the
// simulation is built without monitoring.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// OutputPath returns the path of the recording database, without the
// ".sqlite3" extension.
func (s *Simulation) OutputPath() string {
	return s.outputPath
}

// Terminate terminates the simulation.
func (s *Simulation) Terminate() {
	if s.dataReader != nil {
		s.dataReader.Close()
	}

	s.dataRecorder.Close()
}
