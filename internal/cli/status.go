package cli

import "fmt"

// statusOK, statusWarn, and statusError print the single-line status
// format every decision path uses: "[ok]", "[warn]", or "[error]"
// followed by a message.
func statusOK(format string, args ...interface{}) {
	fmt.Printf("[ok] "+format+"\n", args...)
}

func statusWarn(format string, args ...interface{}) {
	fmt.Printf("[warn] "+format+"\n", args...)
}

func statusError(format string, args ...interface{}) {
	fmt.Printf("[error] "+format+"\n", args...)
}
