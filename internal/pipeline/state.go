package pipeline

// State is the phase a pipeline run is in. Runs advance strictly in order;
// Failed is terminal and reachable from every non-terminal state.
type State int

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota
	// StateExtracting covers the fetch, locate and parse of the source table.
	StateExtracting
	// StateTransforming covers projection, cleaning, filtering and derivation.
	StateTransforming
	// StateLoadingCSV covers the flat-file write.
	StateLoadingCSV
	// StateLoadingDB covers opening the store and loading the table.
	StateLoadingDB
	// StateQuerying covers the verification queries.
	StateQuerying
	// StateDone is the terminal success state.
	StateDone
	// StateFailed is the terminal failure state.
	StateFailed
)

// stage names used for metric labels and span names.
const (
	stageExtract   = "extract"
	stageTransform = "transform"
	stageLoadCSV   = "load_csv"
	stageLoadDB    = "load_db"
	stageQuery     = "query"
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateTransforming:
		return "transforming"
	case StateLoadingCSV:
		return "loading_csv"
	case StateLoadingDB:
		return "loading_db"
	case StateQuerying:
		return "querying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
