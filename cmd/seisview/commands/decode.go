package commands

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/seisview/seisview/pkg/tilewire"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Validate a tile frame dump offline",
	Long: `Replay a captured frame dump through the frame validator and report
what a live session would have accepted or dropped.

The dump format is a sequence of frames, each preceded by a little-endian
uint32 byte length.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	decoder := tilewire.NewDecoder(cfg.Limits)

	rejects := make(map[tilewire.ErrorKind]int)
	var prefix [4]byte
	for {
		if _, err := io.ReadFull(f, prefix[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read dump: %w", err)
		}
		frame := make([]byte, binary.LittleEndian.Uint32(prefix[:]))
		if _, err := io.ReadFull(f, frame); err != nil {
			return fmt.Errorf("read dump: %w", err)
		}
		if _, err := decoder.Decode(frame); err != nil {
			var pe *tilewire.ParseError
			if errors.As(err, &pe) {
				rejects[pe.Kind]++
			}
		}
	}

	st := decoder.Stats()
	fmt.Printf("%d frames, %d accepted, %d rejected\n",
		st.TotalFrames, st.TotalFrames-st.DroppedFrames, st.DroppedFrames)
	kinds := make([]tilewire.ErrorKind, 0, len(rejects))
	for k := range rejects {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Printf("  %-28s %d\n", k, rejects[k])
	}
	return nil
}
