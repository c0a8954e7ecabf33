package filesystem

type (
	// Reader loads documents produced outside the run, such as compiled contract artifacts.
	Reader interface {
		ReadJSON(path string, target any) error
		Exists(path string) bool
	}
	// Writer persists run output, such as the deployment report.
	Writer interface {
		WriteJSON(path string, data any) error
		WriteBytes(path string, data []byte) error
	}
)
