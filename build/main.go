// Build tasks for cargo-lock-fetch. Run with "go run ./build <task>".
package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

const buildinfoPkg = "github.com/matzehuels/cargo-lock-fetch/pkg/buildinfo"

func goCmd(a *goyek.A, args ...string) {
	a.Logf("go %v", args)
	cmd := exec.CommandContext(a.Context(), "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		goCmd(a, "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run all tests with the race detector",
	Action: func(a *goyek.A) {
		goCmd(a, "test", "-race", "./...")
	},
})

var build = goyek.Define(goyek.Task{
	Name:  "build",
	Usage: "Build the cargo-lock-fetch binary into bin/",
	Deps:  goyek.Deps{vet, test},
	Action: func(a *goyek.A) {
		version := os.Getenv("VERSION")
		if version == "" {
			version = "dev"
		}
		goCmd(a, "build",
			"-ldflags", "-X "+buildinfoPkg+".Version="+version,
			"-o", "bin/cargo-lock-fetch",
			"./cmd/cargo-lock-fetch")
	},
})

func main() {
	goyek.SetDefault(build)
	goyek.Main(os.Args[1:])
}
