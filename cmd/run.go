package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/bestfitsim/alloc"
	"github.com/sarchlab/bestfitsim/simulation"
)

var runCapacity int

var runCmd = &cobra.Command{
	Use:   "run [script]",
	Short: "Replay an operation script and print the block sequence.",
	Long: `Run replays a script of allocator operations and prints the ` +
		`block sequence after each one. The script is read from the given ` +
		`file, or from stdin when no file is given. Each line is either ` +
		`"alloc <size>" or "free <size>"; blank lines and lines starting ` +
		`with # are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			input = f
		}

		sim := simulation.MakeBuilder().
			WithCapacity(runCapacity).
			WithoutMonitoring().
			Build()
		defer sim.Terminate()

		return runScript(sim.GetManager(), input, cmd.OutOrStdout())
	},
}

// runScript executes one operation per line and prints the resulting block
// sequence. Malformed lines and failed operations are reported inline and do
// not stop the replay.
func runScript(manager alloc.Manager, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		executeLine(manager, line, out)
	}

	return scanner.Err()
}

func executeLine(manager alloc.Manager, line string, out io.Writer) {
	fmt.Fprintf(out, "> %s\n", line)

	op, size, err := parseLine(line)
	if err != nil {
		fmt.Fprintf(out, "  %s\n", err)
		return
	}

	switch op {
	case "alloc":
		_, err = manager.Allocate(size)
	case "free":
		_, err = manager.Deallocate(size)
	}

	if err != nil {
		fmt.Fprintf(out, "  %s\n", err)
		return
	}

	fmt.Fprintf(out, "  %s\n", formatBlocks(manager.Snapshot()))
}

func parseLine(line string) (op string, size int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", 0, fmt.Errorf(
			"malformed line %q, want \"alloc <size>\" or \"free <size>\"",
			line)
	}

	op = fields[0]
	if op != "alloc" && op != "free" {
		return "", 0, fmt.Errorf("unknown operation %q", op)
	}

	size, convErr := strconv.Atoi(fields[1])
	if convErr != nil || size <= 0 {
		return "", 0, fmt.Errorf(
			"invalid size %q, must be a positive integer", fields[1])
	}

	return op, size, nil
}

func formatBlocks(blocks []alloc.Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		state := "free"
		if b.Allocated {
			state = "alloc"
		}
		parts[i] = fmt.Sprintf("%d:%s", b.Size, state)
	}

	return "[" + strings.Join(parts, " | ") + "]"
}

func init() {
	runCmd.Flags().IntVar(&runCapacity, "capacity",
		intFromEnv("BESTFITSIM_CAPACITY", simulation.DefaultCapacity),
		"total memory capacity in KB")

	rootCmd.AddCommand(runCmd)
}
