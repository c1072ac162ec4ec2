package extensions

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeReference(t *testing.T) {
	cases := map[string]string{
		"https://x/y.git":   "https://x/y",
		"https://x/y.git/":  "https://x/y",
		"https://x/y/":      "https://x/y",
		"https://x/y":       "https://x/y",
		"  https://x/y.git": "https://x/y",
		"":                  "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeReference(in), "input %q", in)
	}
}

func TestSynchronize_AttachesDefinition(t *testing.T) {
	available := []Extension{
		{Author: "a", Title: "Upscaler", Reference: "https://x/y", Files: []string{"https://x/y"}},
	}
	installed := []InstalledExtension{
		{Title: "y", Paths: []string{"/pkg/custom_nodes/y"}, RepositoryURL: "https://x/y.git"},
	}

	outAvail, outInst := Synchronize(available, installed)

	require.Equal(t, available, outAvail)
	require.Len(t, outInst, 1)
	require.NotNil(t, outInst[0].Definition)
	require.Equal(t, "Upscaler", outInst[0].Definition.Title)
}

func TestSynchronize_DetachesWhenSourceVanishes(t *testing.T) {
	def := &Extension{Author: "a", Title: "Gone", Reference: "https://x/gone"}
	installed := []InstalledExtension{
		{Title: "gone", Paths: []string{"/pkg/custom_nodes/gone"}, RepositoryURL: "https://x/gone", Definition: def},
	}

	_, outInst := Synchronize(nil, installed)

	require.Len(t, outInst, 1)
	require.Nil(t, outInst[0].Definition)
	// Input untouched.
	require.NotNil(t, installed[0].Definition)
}

func TestSynchronize_NoURLPassesThrough(t *testing.T) {
	available := []Extension{
		{Author: "a", Title: "t", Reference: "https://x/y", Files: []string{"https://x/y"}},
	}
	installed := []InstalledExtension{
		{Title: "manual", Paths: []string{"/pkg/custom_nodes/manual"}},
	}

	_, outInst := Synchronize(available, installed)

	require.Len(t, outInst, 1)
	require.Nil(t, outInst[0].Definition)
	require.Equal(t, installed[0].Identity(), outInst[0].Identity())
}

func TestSynchronize_TieBreakSmallestIdentity(t *testing.T) {
	first := Extension{Author: "aaa", Title: "first", Reference: "https://x/shared", Files: []string{"https://x/shared"}}
	second := Extension{Author: "zzz", Title: "second", Reference: "https://x/shared", Files: []string{"https://x/shared"}}
	installed := []InstalledExtension{
		{Title: "shared", Paths: []string{"/pkg/custom_nodes/shared"}, RepositoryURL: "https://x/shared.git"},
	}

	// Winner is identity-ordered, not input-ordered.
	for _, available := range [][]Extension{{first, second}, {second, first}} {
		_, outInst := Synchronize(available, installed)
		require.NotNil(t, outInst[0].Definition)
		require.Equal(t, "first", outInst[0].Definition.Title)
	}
}

func TestSynchronize_InputsNotMutated(t *testing.T) {
	available := []Extension{
		{Author: "a", Title: "t", Reference: "https://x/y", Files: []string{"https://x/y"}},
	}
	installed := []InstalledExtension{
		{Title: "y", Paths: []string{"/pkg/custom_nodes/y"}, RepositoryURL: "https://x/y"},
	}

	_, outInst := Synchronize(available, installed)

	require.NotNil(t, outInst[0].Definition)
	require.Nil(t, installed[0].Definition)
}

func genExtensions(rt *rapid.T) []Extension {
	n := rapid.IntRange(0, 6).Draw(rt, "availableCount")
	exts := make([]Extension, 0, n)
	seen := make(map[string]struct{})
	for i := 0; i < n; i++ {
		ref := "https://example.com/" + rapid.StringMatching(`[a-z]{1,5}`).Draw(rt, "repo")
		ext := Extension{
			Author:    rapid.StringMatching(`[a-z]{1,5}`).Draw(rt, "author"),
			Title:     rapid.StringMatching(`[a-z]{1,5}`).Draw(rt, "title"),
			Reference: ref,
			Files:     []string{ref},
		}
		if _, ok := seen[ext.Identity()]; ok {
			continue
		}
		seen[ext.Identity()] = struct{}{}
		exts = append(exts, ext)
	}
	return exts
}

func genInstalled(rt *rapid.T, available []Extension) []InstalledExtension {
	n := rapid.IntRange(0, 6).Draw(rt, "installedCount")
	insts := make([]InstalledExtension, 0, n)
	seen := make(map[string]struct{})
	for i := 0; i < n; i++ {
		name := rapid.StringMatching(`[a-z]{1,5}`).Draw(rt, "dirName")
		inst := InstalledExtension{
			Title: name,
			Paths: []string{"/pkg/custom_nodes/" + name},
		}
		switch {
		case len(available) > 0 && rapid.Bool().Draw(rt, "fromAvailable"):
			src := available[rapid.IntRange(0, len(available)-1).Draw(rt, "srcIndex")]
			inst.RepositoryURL = src.Files[0]
			if rapid.Bool().Draw(rt, "gitSuffix") {
				inst.RepositoryURL += ".git"
			}
		case rapid.Bool().Draw(rt, "unmatchedURL"):
			inst.RepositoryURL = "https://other.example.com/" + rapid.StringMatching(`[a-z]{1,5}`).Draw(rt, "otherRepo")
		}
		if _, ok := seen[inst.Identity()]; ok {
			continue
		}
		seen[inst.Identity()] = struct{}{}
		insts = append(insts, inst)
	}
	return insts
}

func identitiesOf[T interface{ Identity() string }](items []T) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Identity())
	}
	sort.Strings(ids)
	return ids
}

func TestProperty_SynchronizeIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		available := genExtensions(rt)
		installed := genInstalled(rt, available)

		a1, i1 := Synchronize(available, installed)
		a2, i2 := Synchronize(a1, i1)

		require.Equal(t, a1, a2)
		require.Equal(t, i1, i2)
	})
}

func TestProperty_SynchronizePreservesIdentitySets(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		available := genExtensions(rt)
		installed := genInstalled(rt, available)

		outAvail, outInst := Synchronize(available, installed)

		require.Equal(t, identitiesOf(available), identitiesOf(outAvail))
		require.Equal(t, identitiesOf(installed), identitiesOf(outInst))
	})
}

func TestProperty_SynchronizeOnlyTouchesDefinition(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		available := genExtensions(rt)
		installed := genInstalled(rt, available)

		_, outInst := Synchronize(available, installed)

		require.Len(t, outInst, len(installed))
		for i, inst := range installed {
			got := outInst[i]
			got.Definition = nil
			want := inst
			want.Definition = nil
			require.Equal(t, want, got)
		}
	})
}
