// Package main provides the entry point for psxcore.
// Psxcore is an R3000A CPU and GTE emulation core.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/psxcore/emu"
	"github.com/sarchlab/psxcore/loader"
	"github.com/sarchlab/psxcore/timing/icache"
	"github.com/sarchlab/psxcore/timing/latency"
)

var (
	steps        = flag.Uint64("steps", 100_000_000, "Maximum number of instructions to execute")
	timing       = flag.Bool("timing", false, "Enable cycle cost accounting")
	configPath   = flag.String("config", "", "Path to timing configuration JSON file")
	cacheStats   = flag.Bool("icache", false, "Collect instruction cache statistics")
	snapshotPath = flag.String("snapshot", "", "Write a state snapshot to this file on exit")
	verbose      = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: psxcore [options] <program.exe>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%08X\n", prog.EntryPoint)
		fmt.Printf("Load address: 0x%08X (%d bytes)\n", prog.LoadAddr, len(prog.Data))
	}

	memory := emu.NewMemory()
	memory.LoadProgram(emu.TranslateAddress(prog.LoadAddr), prog.Data)

	options := []emu.CPUOption{
		emu.WithBus(memory),
		emu.WithResetPC(prog.EntryPoint),
	}

	if *timing {
		table, err := buildLatencyTable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		options = append(options, emu.WithCycleCounter(table))
	}

	var cache *icache.Cache
	if *cacheStats {
		cache = icache.New()
		options = append(options, emu.WithInstructionCache(cache))
	}

	cpu := emu.NewCPU(options...)
	cpu.RegFile().WriteReg(28, prog.GlobalPointer)
	cpu.RegFile().WriteReg(29, prog.InitialSP)
	cpu.RegFile().WriteReg(30, prog.InitialSP)

	cpu.RunFor(*steps)

	fmt.Printf("\nProgram: %s\n", programPath)
	fmt.Printf("Instructions executed: %d\n", cpu.InstructionCount())
	if *timing {
		cycles := cpu.Cycles()
		cpi := float64(cycles) / float64(max(cpu.InstructionCount(), 1))
		fmt.Printf("Cycles: %d\n", cycles)
		fmt.Printf("CPI: %.2f\n", cpi)
	}

	if cache != nil {
		stats := cache.Stats()
		hitRate := 0.0
		if stats.Fetches > 0 {
			hitRate = 100.0 * float64(stats.Hits) / float64(stats.Fetches)
		}
		fmt.Printf("\nInstruction cache:\n")
		fmt.Printf("  Fetches: %d\n", stats.Fetches)
		fmt.Printf("  Hits:    %d (%.1f%%)\n", stats.Hits, hitRate)
		fmt.Printf("  Misses:  %d\n", stats.Misses)
	}

	if *snapshotPath != "" {
		if err := emu.SaveSnapshot(cpu.Snapshot(), *snapshotPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("Snapshot written to %s\n", *snapshotPath)
		}
	}
}

func buildLatencyTable() (*latency.Table, error) {
	if *configPath == "" {
		return latency.NewTable(), nil
	}

	config, err := latency.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return latency.NewTableWithConfig(config), nil
}
