package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_Exact(t *testing.T) {
	m := NewExact("linux")
	assert.True(t, m.Match("linux"))
	assert.False(t, m.Match("windows"))
}

func TestMatcher_Multi(t *testing.T) {
	m := NewMulti("gpu")
	assert.True(t, m.Match("cpu|gpu"))
	assert.False(t, m.Match("cpu|fpga"))
	assert.True(t, m.Match("gpu"))
}

func TestMatcher_Count(t *testing.T) {
	m := NewCount("4")
	assert.True(t, m.Match("2"))
	assert.True(t, m.Match("4"))
	assert.False(t, m.Match("8"))
	assert.False(t, m.Match("not-a-number"))
}

func TestNewMatcherSet_ThreadsUsesCount(t *testing.T) {
	advertised := New()
	advertised.Add("threads", "4")
	advertised.Add("env", "c")

	set := NewMatcherSet(advertised, "c_group")

	assert.True(t, set.CheckHeader("threads", "2"))
	assert.False(t, set.CheckHeader("threads", "8"))
	assert.True(t, set.CheckHeader("env", "c"))
	assert.False(t, set.CheckHeader("env", "cpp"))
}

func TestNewMatcherSet_HwgroupAlwaysMulti(t *testing.T) {
	set := NewMatcherSet(New(), "gpu")
	assert.True(t, set.CheckHeader("hwgroup", "cpu|gpu"))
	assert.False(t, set.CheckHeader("hwgroup", "cpu|fpga"))
}

func TestCheckHeaders_AllMustMatch(t *testing.T) {
	advertised := New()
	advertised.Add("env", "c")
	set := NewMatcherSet(advertised, "c_group")

	required := New()
	required.Add("env", "c")
	required.Add("hwgroup", "c_group")
	assert.True(t, set.CheckHeaders(required))

	required.Add("missing", "x")
	assert.False(t, set.CheckHeaders(required))
}
