// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	mmv "github.com/statsgrid/mmv"
	"github.com/spf13/cobra"
)

var verbose bool

func dumpOne(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	d, err := mmv.Parse(data)
	if err != nil {
		return err
	}

	if err := d.Render(os.Stdout); err != nil {
		return err
	}

	if verbose {
		fmt.Println("raw bytes:")
		hexDump(os.Stdout, data)
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) {
	for _, path := range args {
		if err := dumpOne(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

// hexDump writes b in the 16-bytes-per-row hex+ASCII layout the -v flag
// shows alongside the structured dump.
func hexDump(w *os.File, b []byte) {
	var ascii [16]byte
	n := (len(b) + 15) &^ 15
	for i := 0; i < n; i++ {
		if i%16 == 0 {
			fmt.Fprintf(w, "%6d", i)
		}
		if i%8 == 0 {
			fmt.Fprint(w, " ")
		}
		if i < len(b) {
			fmt.Fprintf(w, " %02x", b[i])
		} else {
			fmt.Fprint(w, "   ")
		}
		switch {
		case i >= len(b):
			ascii[i%16] = ' '
		case b[i] < 32 || b[i] > 126:
			ascii[i%16] = '.'
		default:
			ascii[i%16] = b[i]
		}
		if i%16 == 15 {
			fmt.Fprintf(w, "  %s\n", string(ascii[:]))
		}
	}
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "mmvdump",
		Short: "Dumps the contents of a Performance Co-Pilot MMV file",
		Long:  "mmvdump parses a memory-mapped value (MMV) file and prints its structure.",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("mmvdump version 0.1.0")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump [file...]",
		Short: "Dump one or more MMV files",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDump,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also hex-dump the raw file bytes")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
