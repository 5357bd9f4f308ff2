package domain

// Container is the runtime's view of a deployed container. The pipeline only
// stores the ID; the rest is filled in on inspection.
type Container struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Status string `json:"status"` // human readable, e.g. "Up since ..."
	State  string `json:"state"`  // running, exited, etc.
}

func (c Container) Running() bool { return c.State == "running" }
