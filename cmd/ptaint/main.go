package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/barrowsr/ptaint/internal/maps"
	"github.com/barrowsr/ptaint/internal/progfile"
	"github.com/barrowsr/ptaint/pta"
)

func main() {
	app := cli.NewApp()
	app.Name = "ptaint"
	app.Usage = "context-sensitive pointer and taint analysis"
	app.ArgsUsage = "program.yaml"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "print debug messages",
		},
		cli.StringFlag{
			Name:  "taint-config",
			Usage: "path to the taint configuration file",
		},
		cli.StringFlag{
			Name:  "context",
			Value: "insensitive",
			Usage: "context policy: insensitive, 1-call, 2-call, 1-obj",
		},
	}
	app.Action = run

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func selectorFor(policy string) (pta.ContextSelector, error) {
	switch policy {
	case "insensitive":
		return pta.Insensitive{}, nil
	case "1-call":
		return pta.KCallSite{K: 1}, nil
	case "2-call":
		return pta.KCallSite{K: 2}, nil
	case "1-obj":
		return pta.OneObject{}, nil
	default:
		return nil, fmt.Errorf("unknown context policy %q", policy)
	}
}

func run(c *cli.Context) error {
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	if c.NArg() != 1 {
		return cli.NewExitError("specify exactly one program file", 2)
	}

	selector, err := selectorFor(c.String("context"))
	if err != nil {
		return err
	}

	prog, err := progfile.Load(c.Args().Get(0))
	if err != nil {
		return err
	}
	log.Infof("loaded classes %v, entry %s", maps.SortedKeys(prog.Classes), prog.Entry)

	options := pta.Options{}
	if tc := c.String("taint-config"); tc != "" {
		options[pta.TaintConfigOption] = tc
	}

	res, err := pta.Solve(prog, options, pta.NewAllocSiteModel(), selector)
	if err != nil {
		return err
	}

	cg := res.CallGraph()
	log.Infof("%d reachable methods, %d call edges",
		len(cg.ReachableMethods()), len(cg.Edges()))

	emptyCtx := selector.EmptyContext()
	fmt.Println("points-to sets of entry locals:")
	for _, v := range prog.Entry.IR.Vars {
		fmt.Printf("  %s -> %s\n", v.Name, res.VarPointsTo(emptyCtx, v))
	}

	fmt.Println("call graph:")
	for _, e := range cg.Edges() {
		fmt.Printf("  [%s] %s -> %s\n", e.Kind, e.CallSite, e.Callee)
	}

	flows := res.TaintFlows()
	if len(flows) > 0 {
		fmt.Printf("taint flows (%d):\n", len(flows))
		for _, f := range flows {
			fmt.Printf("  %s\n", f)
		}
	}
	return nil
}
