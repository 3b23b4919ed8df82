// Command overlaylab-explore builds one of the three routing overlays
// in-process and drops into an interactive liner shell for poking at it:
// joining/leaving nodes, storing and looking up keys, and inspecting
// routing-table state. It is a local exploration tool; benchmark
// sweeps and reporting are external collaborators (spec.md §1).
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"overlaylab/internal/config"
	"overlaylab/internal/domain"
	"overlaylab/internal/logger"
	zapfactory "overlaylab/internal/logger/zap"
	"overlaylab/internal/lookup"
	"overlaylab/internal/network"
	"overlaylab/internal/overlay"
	"overlaylab/internal/prefixnet"
	"overlaylab/internal/ring"
	"overlaylab/internal/telemetry"
	"overlaylab/internal/telemetry/lookuptrace"
	"overlaylab/internal/xorkad"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "overlaylab-explore",
		Short: "Build a routing overlay in-process and explore it interactively",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a SimConfig YAML file (optional)")

	root.AddCommand(
		newProtocolCommand("ring", "Build a RING (finger-table) overlay"),
		newProtocolCommand("xor", "Build an XOR (k-bucket) overlay"),
		newProtocolCommand("prefix", "Build a PREFIX (leaf-set) overlay"),
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newProtocolCommand(name, short string) *cobra.Command {
	var nodeCount int
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(name, nodeCount)
		},
	}
	cmd.Flags().IntVar(&nodeCount, "nodes", 10, "number of nodes to join before dropping into the shell")
	return cmd
}

func runShell(protocol string, nodeCount int) error {
	cfg, lgr, shutdown, err := setup()
	if err != nil {
		return err
	}
	defer shutdown()

	space, err := domain.NewSpace(cfg.IDBits)
	if err != nil {
		return fmt.Errorf("build identifier space: %w", err)
	}
	sim := network.New(cfg.Network.PerHopDelay, network.WithLogger(lgr))

	sh := &shell{protocol: protocol, cfg: cfg, space: space, sim: sim, lgr: lgr, traced: cfg.Telemetry.Tracing.Enabled}
	ids := domain.GenerateNodeIDs(nodeCount, cfg.IDBits, cfg.Generators.NodeSeed)
	for i, id := range ids {
		var bootstrap *domain.ID
		if i > 0 {
			bootstrap = &ids[0]
		}
		n := sh.newNode(id)
		n.Join(bootstrap)
		sh.nodes[id] = n
	}

	fmt.Printf("overlaylab-explore: %s overlay with %d nodes (idBits=%d)\n", protocol, len(sh.nodes), cfg.IDBits)
	fmt.Println("Available commands: put/get/join/leave/lookup/rt/stabilize/nodes/exit")
	return sh.repl()
}

func setup() (*config.SimConfig, logger.Logger, func(), error) {
	var cfg *config.SimConfig
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		d := config.Default()
		cfg = &d
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initialize logger: %w", err)
		}
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	shutdownTracer := telemetry.InitTracer(cfg.Telemetry.Tracing)
	shutdown := func() {
		_ = shutdownTracer(context.Background())
	}
	return cfg, lgr, shutdown, nil
}

// shell holds the in-process overlay state a single REPL session drives.
type shell struct {
	protocol string
	cfg      *config.SimConfig
	space    domain.Space
	sim      *network.Simulator
	lgr      logger.Logger
	nodes    map[domain.ID]overlay.Node
	traced   bool
}

// lookup runs n.Lookup(key), bracketing the call in an OpenTelemetry
// span via lookuptrace when tracing is enabled (see internal/telemetry).
func (s *shell) lookup(n overlay.Node, key domain.ID) lookup.Result {
	if !s.traced {
		return n.Lookup(key)
	}
	return lookuptrace.Trace(context.Background(), s.protocol, n.ID(), key, func() lookup.Result {
		return n.Lookup(key)
	})
}

func (s *shell) newNode(id domain.ID) overlay.Node {
	if s.nodes == nil {
		s.nodes = make(map[domain.ID]overlay.Node)
	}
	switch s.protocol {
	case "ring":
		return ring.New(id, s.space, s.sim, s.cfg.Ring.SuccessorListSize, ring.WithLogger(s.lgr))
	case "xor":
		return xorkad.New(id, s.space, s.sim, s.cfg.XOR.K, s.cfg.XOR.Alpha, xorkad.WithLogger(s.lgr))
	case "prefix":
		return prefixnet.New(id, s.space, s.sim, s.cfg.Prefix.BitsPerDigit, s.cfg.Prefix.LeafSize, prefixnet.WithLogger(s.lgr))
	default:
		panic("unknown protocol: " + s.protocol)
	}
}

func (s *shell) anyNode() (overlay.Node, bool) {
	for _, n := range s.nodes {
		return n, true
	}
	return nil, false
}

func (s *shell) repl() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("overlaylab[%s]> ", s.protocol))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			return nil
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "put":
			s.cmdPut(args)
		case "get":
			s.cmdGet(args)
		case "join":
			s.cmdJoin(args)
		case "leave":
			s.cmdLeave(args)
		case "lookup":
			s.cmdLookup(args)
		case "rt":
			s.cmdRT(args)
		case "stabilize":
			s.cmdStabilize()
		case "nodes":
			s.cmdNodes()
		case "exit", "quit":
			fmt.Println("Bye!")
			return nil
		default:
			fmt.Printf("Unknown command: %s\n", args[0])
		}
	}
}

func (s *shell) cmdPut(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: put <key> <value>")
		return
	}
	n, ok := s.anyNode()
	if !ok {
		fmt.Println("no nodes available")
		return
	}
	key := domain.HashKey(args[1], s.space.Bits)
	if n.Store(key, args[2]) {
		fmt.Printf("stored key=%s (%s) value=%s\n", args[1], key, args[2])
	} else {
		fmt.Printf("put failed for key=%s\n", args[1])
	}
}

func (s *shell) cmdGet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: get <key>")
		return
	}
	n, ok := s.anyNode()
	if !ok {
		fmt.Println("no nodes available")
		return
	}
	key := domain.HashKey(args[1], s.space.Bits)
	val, ok := n.Retrieve(key)
	if !ok {
		fmt.Printf("key not found: %s\n", args[1])
		return
	}
	fmt.Printf("key=%s (%s) value=%s\n", args[1], key, val)
}

func (s *shell) cmdJoin(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: join <seedIndex>")
		return
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("invalid index: %v\n", err)
		return
	}
	ids := domain.GenerateNodeIDs(idx+1, s.cfg.IDBits, s.cfg.Generators.NodeSeed)
	id := ids[idx]
	if _, exists := s.nodes[id]; exists {
		fmt.Printf("node %s already present\n", id)
		return
	}
	n := s.newNode(id)
	bootstrap, ok := s.anyNode()
	var messages int
	if ok {
		bid := bootstrap.ID()
		messages = n.Join(&bid)
	} else {
		messages = n.Join(nil)
	}
	s.nodes[id] = n
	fmt.Printf("joined %s (messages=%d)\n", id, messages)
}

func (s *shell) cmdLeave(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: leave <id>")
		return
	}
	id, ok := s.parseID(args[1])
	if !ok {
		return
	}
	n, ok := s.nodes[id]
	if !ok {
		fmt.Printf("no such node: %s\n", id)
		return
	}
	messages := n.Leave()
	delete(s.nodes, id)
	fmt.Printf("left %s (messages=%d)\n", id, messages)
}

func (s *shell) cmdLookup(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: lookup <key>")
		return
	}
	n, ok := s.anyNode()
	if !ok {
		fmt.Println("no nodes available")
		return
	}
	key := domain.HashKey(args[1], s.space.Bits)
	res := s.lookup(n, key)
	fmt.Printf("lookup(%s) responsible=%s hops=%d success=%v path=%v\n",
		args[1], res.ResponsibleNode, res.HopCount, res.Success, res.Path)
}

func (s *shell) cmdRT(args []string) {
	var n overlay.Node
	if len(args) >= 2 {
		id, ok := s.parseID(args[1])
		if !ok {
			return
		}
		n, ok = s.nodes[id]
		if !ok {
			fmt.Printf("no such node: %s\n", id)
			return
		}
	} else {
		var ok bool
		n, ok = s.anyNode()
		if !ok {
			fmt.Println("no nodes available")
			return
		}
	}
	fmt.Printf("node %s routing table size: %d\n", n.ID(), n.RoutingTableSize())
}

func (s *shell) cmdStabilize() {
	for _, n := range s.nodes {
		n.Stabilize()
	}
	fmt.Printf("ran one stabilize round across %d nodes\n", len(s.nodes))
}

func (s *shell) cmdNodes() {
	ids := make([]domain.ID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
	fmt.Printf("%d live nodes\n", len(ids))
}

func (s *shell) parseID(raw string) (domain.ID, bool) {
	raw = strings.TrimPrefix(raw, "0x")
	v, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		fmt.Printf("invalid id %q: %v\n", raw, err)
		return 0, false
	}
	return domain.ID(v), true
}
