package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/haydenshimada/mmtracking/lib"
	"github.com/k0kubun/go-ansi"
	"github.com/mitchellh/colorstring"
)

// Prints the metrics stored for one run of the sqlite backend.
func main() {
	storePath := flag.String("store", lib.DefaultConfig().LogBase.StorePath, "path to the run store")
	runID := flag.String("run", "", "run id")
	flag.Parse()

	color.Output = ansi.NewAnsiStdout()
	if *runID == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}

	store, err := lib.OpenStore(*storePath)
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
	defer store.Close()

	run, err := store.GetRun(*runID)
	if err != nil {
		color.Red("run %s: %v", *runID, err)
		os.Exit(1)
	}
	colorstring.Fprintf(color.Output, "[cyan]%s[reset] %s algorithm=[green]%s[reset] config=%s checkpoint=%s\n",
		run.ID, run.Project, run.Algorithm, run.ConfigName, run.Checkpoint)

	metrics, err := store.ListMetrics(run.ID)
	if err != nil {
		color.Red("metrics: %v", err)
		os.Exit(1)
	}
	for _, m := range metrics {
		colorstring.Fprintf(color.Output, "  [step %d] %-24s [green]%f[reset]\n", m.Step, m.Name, m.Value)
	}
}
