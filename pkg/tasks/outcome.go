package tasks

import "fmt"

// OutcomeKind tags a scheduling outcome
type OutcomeKind int

const (
	Success OutcomeKind = iota
	ClientRejected
	ServerFailure
	TransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case ClientRejected:
		return "client_rejected"
	case ServerFailure:
		return "server_failure"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of exactly one submission
type Outcome struct {
	Kind    OutcomeKind
	Message string
	// Status is the HTTP status code, zero for transport failures
	Status int
	Cause  error
}

// Succeeded returns a Success outcome
func Succeeded(status int, message string) Outcome {
	return Outcome{Kind: Success, Status: status, Message: message}
}

// Rejected returns a ClientRejected outcome
func Rejected(status int, message string) Outcome {
	return Outcome{Kind: ClientRejected, Status: status, Message: message}
}

// ServerFailed returns a ServerFailure outcome carrying only the generic message
func ServerFailed(status int) Outcome {
	return Outcome{Kind: ServerFailure, Status: status, Message: "Server error"}
}

// TransportFailed returns a TransportFailure outcome
func TransportFailed(cause error) Outcome {
	return Outcome{Kind: TransportFailure, Cause: cause}
}

// Displayable reports whether the outcome carries a server message meant for the user
func (o Outcome) Displayable() bool {
	return (o.Kind == Success || o.Kind == ClientRejected) && o.Message != ""
}

// Refreshes reports whether the task list and calendar must be reloaded.
// Every success does, whatever its message; a rejection only when it carries one.
func (o Outcome) Refreshes() bool {
	return o.Kind == Success || o.Displayable()
}

func (o Outcome) String() string {
	switch o.Kind {
	case TransportFailure:
		return fmt.Sprintf("%s: %v", o.Kind, o.Cause)
	default:
		return fmt.Sprintf("%s (%d): %s", o.Kind, o.Status, o.Message)
	}
}
