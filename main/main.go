package main

import (
	"flag"
	"fmt"
	goio "io"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"gopkg.in/warnings.v0"

	"github.com/phil-mansfield/phasefind"
	"github.com/phil-mansfield/phasefind/io"
)

type FileGroup struct {
	log, prof *os.File
}

func (fg *FileGroup) Close() {
	if fg.log != nil {
		err := fg.log.Close()
		if err != nil { log.Fatal(err.Error()) }
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil { log.Fatal(err.Error()) }
	}
}

type SnapshotReader func(
	[]string, *io.SnapshotConfig,
) ([]phasefind.Particle, phasefind.Params, error)

var SnapshotReaders = map[string]SnapshotReader{
	io.GadgetFormat: io.ReadGadget,
	io.TextFormat: io.ReadText,
}

func main() {
	var run, exampleConfig string
	vars := map[string]*string{
		"Run": &run,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(&run, "Run", "", "Configuration file for [Run] mode.")
	flag.StringVar(
		&exampleConfig,
		"ExampleConfig", "", "Prints an example configuration file of the " +
			"specified type to stdout. The only accepted argument is 'Run'.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil { log.Fatal(err.Error()) }

	switch modeName {
	case "Run":
		wrap, err := io.ReadRunConfig(run)
		if warnings.FatalOnly(err) != nil { log.Fatal(err.Error()) }
		for _, w := range warnings.WarningsOnly(err) {
			log.Printf("Warning in %s: %s", run, w)
		}
		if err := wrap.Check(); err != nil { log.Fatal(err.Error()) }
		runMain(wrap)

	case "ExampleConfig":
		switch exampleConfig {
		case "Run":
			fmt.Println(io.ExampleRunFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. The only recognized " +
					"argument is 'Run'.",
			)
		}
	default:
		panic("Impossible")
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" { setNames = append(setNames, name) }
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but phasefind " +
				"only accepts one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

func setupIO(con *io.RunConfig) *FileGroup {
	fg := &FileGroup{}
	var err error

	if con.ValidLogFile() {
		fg.log, err = os.Create(con.LogFile)
		if err != nil { log.Fatal(err.Error()) }
		log.SetOutput(fg.log)
	}

	if con.ValidProfileFile() {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil { log.Fatal(err.Error()) }
		pprof.StartCPUProfile(fg.prof)
	}

	return fg
}

func runMain(wrap *io.RunWrapper) {
	con := &wrap.Run
	fg := setupIO(con)
	defer fg.Close()

	cfg, err := wrap.Finder.Config()
	if err != nil { log.Fatal(err.Error()) }
	cfg.Workers = con.Workers
	cfg.Log = con.Verbose

	reader := SnapshotReaders[wrap.Snapshot.Format]
	ps, params, err := reader(con.Input, &wrap.Snapshot)
	if err != nil { log.Fatal(err.Error()) }
	log.Printf(
		"Read %d particles from %d file(s). Box: %g Mpc/h, a: %g, " +
			"Omega_M: %g, Omega_L: %g, h: %g, particle mass: %g Msun/h.",
		len(ps), len(con.Input), params.BoxSize, params.Scale,
		params.OmegaM, params.OmegaL, params.H100, params.ParticleMass,
	)

	groups, err := io.ReadGroups(con.Groups)
	if err != nil { log.Fatal(err.Error()) }
	log.Printf("Read %d groups from %s.", len(groups), con.Groups)

	finder, err := phasefind.NewFinder(cfg, params, ps)
	if err != nil { log.Fatal(err.Error()) }
	cat, err := finder.Run(groups)
	if warnings.FatalOnly(err) != nil { log.Fatal(err.Error()) }
	for _, w := range warnings.WarningsOnly(err) {
		log.Printf("Warning: %s", w)
	}

	err = writeOutput(con.Output, cat, io.WriteCatalog)
	if err != nil { log.Fatal(err.Error()) }
	if con.MembersFile != "" {
		err = writeOutput(con.MembersFile, cat, io.WriteMembers)
		if err != nil { log.Fatal(err.Error()) }
	}
	log.Printf("Wrote %d halos to %s.", cat.Len(), con.Output)
}

// writeOutput writes cat to fname. Errors from closing the file are
// returned like write errors.
func writeOutput(
	fname string, cat *phasefind.Catalog,
	write func(w goio.Writer, cat *phasefind.Catalog) error,
) error {
	f, err := os.Create(fname)
	if err != nil { return fmt.Errorf("Could not create %s.", fname) }
	if err := write(f, cat); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("Could not close %s: %s", fname, err.Error())
	}
	return nil
}
