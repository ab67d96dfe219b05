package main

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phanxgames/vmix"
	"github.com/phanxgames/vmix/store"
)

var defaultPatterns = []string{"color bars", "gradient", "checker"}

func runNew(cmd *cobra.Command, args []string) error {
	key, names := args[0], args[1:]
	if len(names) == 0 {
		names = defaultPatterns
	}
	force, _ := cmd.Flags().GetBool("force")

	ctx := cmd.Context()
	if !force {
		if _, err := docStore.Head(ctx, key); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", key)
		} else if !errors.Is(err, store.ErrNotExist) {
			return err
		}
	}

	s, err := patternSession(mixerOptions(cfg, docStore).Session, names)
	if err != nil {
		return err
	}
	defer s.Close()

	dir := ""
	if loc, ok := docStore.(store.Locator); ok {
		if p, err := loc.Locate(key); err == nil {
			dir = filepath.Dir(p)
		}
	}
	data, err := vmix.NewDocument(s).Marshal(dir)
	if err != nil {
		return err
	}
	info, err := docStore.Put(ctx, key, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s with %d sources\n", info.Key, s.Len())
	return nil
}

// patternSession lays the named patterns out on a circle of the Mixing
// view, all fully visible.
func patternSession(sc vmix.SessionConfig, names []string) (*vmix.Session, error) {
	if len(names) == 0 {
		return nil, errors.New("no patterns")
	}
	s := vmix.NewSession(sc)
	w, h := s.Resolution()
	for i, name := range names {
		pt, ok := vmix.ParsePattern(name)
		if !ok {
			s.Close()
			return nil, fmt.Errorf("unknown pattern %q", name)
		}
		src := s.Add(vmix.NewSource(name, vmix.NewPatternProducer(pt, w, h)))
		a := 2 * math.Pi * float64(i) / float64(len(names))
		n := src.Node(vmix.ViewMixing)
		n.SetTranslation(vmix.Vec3{X: 0.3 * math.Cos(a), Y: 0.3 * math.Sin(a)})
		src.Touch()
	}
	s.Actions().Store("new session")
	return s, nil
}
