package orders

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// PENDING is the only non-terminal state; both transitions out of it are
// farmer decisions.
var validNext = map[Status]map[Status]bool{
	StatusPending:  {StatusAccepted: true, StatusRejected: true},
	StatusAccepted: {},
	StatusRejected: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}
