package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/drbh/bspc"
)

// infoCmd returns the info command.
func infoCmd() *command {
	c := newCommand(&command{
		name:  "info",
		args:  "<path> [flags]",
		short: "Show matrix metadata",
		long:  "Show the dimensions, nnz, format, element type, structure flags,\nbloom chunk count, and label presence of a .bspc file.",
	})

	c.flags.Bool("json", false, "Output as JSON")

	c.exec = func(_ context.Context, o *IO, path string, _ bspc.ChunkConfig) error {
		jsonOutput, _ := c.flags.GetBool("json")

		return execInfo(o, path, jsonOutput)
	}

	return c
}

type infoOutput struct {
	Nrows          uint64 `json:"nrows"`
	Ncols          uint64 `json:"ncols"`
	Nnz            uint64 `json:"nnz"`
	Format         string `json:"format"`
	DataType       string `json:"data_type"`
	StructureFlags uint8  `json:"structure_flags"`
	BloomChunks    int    `json:"bloom_chunks"`
	HasLabels      bool   `json:"has_labels"`
}

func execInfo(o *IO, path string, jsonOutput bool) error {
	m, err := bspc.OpenDynamic(path)
	if err != nil {
		return err
	}

	defer func() { _ = m.Close() }()

	nrows, ncols := m.Dimensions()
	_, _, hasLabels := m.Header().MetadataRegion()

	info := infoOutput{
		Nrows:          nrows,
		Ncols:          ncols,
		Nnz:            m.Nnz(),
		Format:         m.Format().String(),
		DataType:       m.DataType().String(),
		StructureFlags: m.StructureFlags(),
		BloomChunks:    m.BloomIndex().NumChunks(),
		HasLabels:      hasLabels,
	}

	if jsonOutput {
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal info: %w", err)
		}

		o.Println(string(out))

		return nil
	}

	o.Printf("dimensions:   %d x %d\n", info.Nrows, info.Ncols)
	o.Printf("nnz:          %d\n", info.Nnz)
	o.Printf("format:       %s\n", info.Format)
	o.Printf("data type:    %s\n", info.DataType)
	o.Printf("flags:        %#x\n", info.StructureFlags)
	o.Printf("bloom chunks: %d\n", info.BloomChunks)
	o.Printf("labels:       %v\n", info.HasLabels)

	return nil
}
