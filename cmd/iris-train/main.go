// Command iris-train fits a random forest on the iris dataset, prints its
// test accuracy and saves the model.
//
// Run without arguments it uses an 80/20 split seeded with 42, 100 trees,
// and writes models/iris_model.pkl.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
