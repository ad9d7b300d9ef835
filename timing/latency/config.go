package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds cycle costs for the instruction classes of the
// R3000A and for each geometry coprocessor command.
type TimingConfig struct {
	// ALULatency covers arithmetic, logic, compare and shift
	// instructions. Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency covers conditional branches and jumps. The delay
	// slot instruction is priced separately when it executes.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency covers loads, assuming no bus stall. Default: 1 cycle.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency covers stores. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MultiplyLatency is the HI/LO interlock depth of MULT and MULTU.
	// Default: 12 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatency is the HI/LO interlock depth of DIV and DIVU.
	// Default: 35 cycles.
	DivideLatency uint64 `json:"divide_latency"`

	// CopTransferLatency covers moves to and from coprocessor
	// registers. Default: 1 cycle.
	CopTransferLatency uint64 `json:"cop_transfer_latency"`

	// GTECommandLatency maps each geometry command mnemonic to its
	// execution time in cycles.
	GTECommandLatency map[string]uint64 `json:"gte_command_latency"`
}

// DefaultTimingConfig returns a TimingConfig with R3000A values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:         1,
		BranchLatency:      1,
		LoadLatency:        1,
		StoreLatency:       1,
		MultiplyLatency:    12,
		DivideLatency:      35,
		CopTransferLatency: 1,

		GTECommandLatency: map[string]uint64{
			"RTPS":  15,
			"NCLIP": 8,
			"OP":    6,
			"DPCS":  8,
			"INTPL": 8,
			"MVMVA": 8,
			"NCDS":  19,
			"CDP":   13,
			"NCDT":  44,
			"NCCS":  17,
			"CC":    11,
			"NCS":   14,
			"NCT":   30,
			"SQR":   5,
			"DCPL":  8,
			"DPCT":  17,
			"AVSZ3": 5,
			"AVSZ4": 6,
			"RTPT":  23,
			"GPF":   5,
			"GPL":   5,
			"NCCT":  39,
		},
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Values missing from
// the file keep their defaults.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0) and that
// every geometry command is priced.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.DivideLatency == 0 {
		return fmt.Errorf("divide_latency must be > 0")
	}
	if c.CopTransferLatency == 0 {
		return fmt.Errorf("cop_transfer_latency must be > 0")
	}

	for _, name := range gteCommandNames {
		cost, ok := c.GTECommandLatency[name]
		if !ok {
			return fmt.Errorf("gte_command_latency is missing %s", name)
		}
		if cost == 0 {
			return fmt.Errorf("gte_command_latency for %s must be > 0", name)
		}
	}

	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c

	clone.GTECommandLatency = make(map[string]uint64, len(c.GTECommandLatency))
	for name, cost := range c.GTECommandLatency {
		clone.GTECommandLatency[name] = cost
	}

	return &clone
}
