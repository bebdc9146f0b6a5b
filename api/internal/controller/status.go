package controller

// Status is the phase of the upload/generate workflow. It is one of
// Idle, Loading, Success or Failure; no other implementations exist.
type Status interface {
	status()
	String() string
}

type Idle struct{}

type Loading struct{}

// Success carries the generated text.
type Success struct{ Text string }

// Failure carries the error shown to the user.
type Failure struct{ Err *Error }

func (Idle) status()    {}
func (Loading) status() {}
func (Success) status() {}
func (Failure) status() {}

func (Idle) String() string    { return "idle" }
func (Loading) String() string { return "loading" }
func (Success) String() string { return "success" }
func (Failure) String() string { return "failure" }
