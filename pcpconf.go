// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
)

const mmvDirSuffix = "mmv"

var pcpConfLineRE = regexp.MustCompile(`^(PCP_[A-Za-z0-9_]+)=([^"'][^\n]*[^"'])$`)

// pcpRoot returns $PCP_DIR, or the filesystem root if unset.
func pcpRoot() string {
	if v, ok := os.LookupEnv("PCP_DIR"); ok {
		return v
	}
	return string(filepath.Separator)
}

// parsePCPConf reads the PCP_VAR=value lines of path and sets each as an
// environment variable, without overwriting a variable already present
// in the environment. Non-PCP_-prefixed lines, blank lines, and comment
// lines (leading #) are silently ignored, matching pcp.conf(5).
func parsePCPConf(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		m := pcpConfLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, set := os.LookupEnv(m[1]); !set {
			os.Setenv(m[1], m[2])
		}
	}
	return scanner.Err()
}

// initPCPConf loads pcp.conf variables into the environment: first
// root/etc/pcp.conf (failures ignored, it's optional scaffolding), then
// root/$PCP_CONF (failures returned, since a caller that set PCP_CONF
// explicitly wants to know if it couldn't be read).
func initPCPConf(root string) error {
	parsePCPConf(filepath.Join(root, "etc", "pcp.conf"))
	return parsePCPConf(filepath.Join(root, os.Getenv("PCP_CONF")))
}

// mmvDir resolves the directory MMV files are written to and read from:
// $PCP_DIR/$PCP_TMP_DIR/mmv, falling back to $PCP_DIR/<os temp dir>/mmv
// when PCP_TMP_DIR isn't set even after parsing pcp.conf. The directory
// is created if it doesn't already exist.
func mmvDir() (string, error) {
	root := pcpRoot()

	tmpDir, ok := os.LookupEnv("PCP_TMP_DIR")
	if !ok {
		initPCPConf(root)
		tmpDir, ok = os.LookupEnv("PCP_TMP_DIR")
		if !ok {
			tmpDir = os.TempDir()
			os.Setenv("PCP_TMP_DIR", tmpDir)
		}
	}

	dir := filepath.Join(root, tmpDir, mmvDirSuffix)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
