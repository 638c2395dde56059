package rcf

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/rcf/schema"
)

func permuteStrings(in []string) [][]string {
	var out [][]string
	idx := append([]string(nil), in...)
	var gen func(int)
	gen = func(i int) {
		if i == len(idx) {
			out = append(out, append([]string(nil), idx...))
			return
		}
		for j := i; j < len(idx); j++ {
			idx[i], idx[j] = idx[j], idx[i]
			gen(i + 1)
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	gen(0)
	return out
}

func aliasedRecord(typeAliases, fieldAliases []string) schema.Schema {
	return &schema.Record{
		Name:    schema.Name{Name: "user", Namespace: "acme"},
		Aliases: typeAliases,
		Fields: []*schema.Field{{
			Name:    "id",
			Type:    &schema.Primitive{Kind: schema.KindLong},
			Aliases: fieldAliases,
		}},
	}
}

func TestDeterminism_AliasPermutationsByteIdentical(t *testing.T) {
	typeAliases := []string{"person", "legacy.user", "account"}
	fieldAliases := []string{"uid", "identifier", "key"}

	var golden string
	for run := 0; run < 10; run++ {
		for _, ta := range permuteStrings(typeAliases) {
			for _, fa := range permuteStrings(fieldAliases) {
				form := mustForm(t, aliasedRecord(ta, fa))
				if golden == "" {
					golden = form
					continue
				}
				require.Equal(t, golden, form, "RCF changed across alias permutations")
			}
		}
	}
	assert.Equal(t,
		`{"name":"acme.user","type":"record","fields":[{"name":"id","type":"long","aliases":["identifier","key","uid"]}],"aliases":["acme.account","acme.person","legacy.user"]}`,
		golden)
}

func TestDeterminism_RepeatedCallsDoNotShareState(t *testing.T) {
	item := &schema.Record{Name: schema.Name{Name: "item"}}
	item.Fields = []*schema.Field{{Name: "next", Type: item}}

	first := mustForm(t, item)
	for i := 0; i < 5; i++ {
		// A registry leaking across calls would turn the second result into "item".
		assert.Equal(t, first, mustForm(t, item))
	}
	assert.NotEqual(t, `"item"`, first)
}

func TestDeterminism_ConcurrentCallers(t *testing.T) {
	s := mustParse(t, recordDoc)
	want := mustForm(t, s)
	wantFP := Fingerprint(want)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				form, err := ToCanonicalForm(s)
				if err != nil {
					errs <- err
					return
				}
				if form != want {
					errs <- fmt.Errorf("got %s", form)
					return
				}
				fp, err := ToFingerprint(s)
				if err != nil {
					errs <- err
					return
				}
				if fp.Cmp(wantFP) != 0 {
					errs <- fmt.Errorf("fingerprint mismatch")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSerialize_PreservesTreeOrder(t *testing.T) {
	tree := Object{
		{Key: "z", Value: Int(1)},
		{Key: "a", Value: Array{Float(0.5), Float(1e21), Float(1e-7), Bool(true), Null{}}},
		{Key: "m", Value: Object{}},
	}
	assert.Equal(t, `{"z":1,"a":[0.5,1e+21,1e-7,true,null],"m":{}}`, string(Serialize(tree)))
	assert.Equal(t, Serialize(tree), Serialize(tree))
}
