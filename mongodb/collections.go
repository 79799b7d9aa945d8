package mongodb

const (
	// RuntimeStateCollection holds one document per active flow session.
	RuntimeStateCollection = "flow_runtime_state"
)
