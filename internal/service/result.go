package service

// Result is the outcome of a mutation. Error holds a message fit for display
// and is empty on success.
type Result struct {
	Success bool
	Error   string
}

func ok() Result {
	return Result{Success: true}
}

func fail(msg string) Result {
	return Result{Error: msg}
}
