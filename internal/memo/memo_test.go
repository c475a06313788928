package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubMember struct{ sign string }

func (self *stubMember) MemoSign() string { return self.sign }

func TestGroupCanonicalAndSign(t *testing.T) {
	assert := assert.New(t)

	canon := &stubMember{sign: "0{tbl=a}"}
	g := NewGroup(1, canon)

	assert.Equal(1, g.ID())
	assert.Same(canon, g.Canonical())
	assert.Equal("0{tbl=a}", g.Sign())
	assert.Len(g.Members(), 1)
}

func TestGroupAddMemberDoesNotDisturbCanonical(t *testing.T) {
	assert := assert.New(t)

	canon := &stubMember{sign: "0{tbl=a}"}
	alt := &stubMember{sign: "0{tbl=a-alt}"}
	g := NewGroup(2, canon)
	g.AddMember(alt)

	assert.Same(canon, g.Canonical())
	assert.Len(g.Members(), 2)
	assert.Equal("0{tbl=a}", g.Sign())
}
