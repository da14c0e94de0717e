package protocol

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

type ProtocolSuite struct {
	suite.Suite
}

func (s *ProtocolSuite) TestHeartbeatHeader() {
	account, ok := ParseHeartbeatHeader("Header:heartbeat:alice:client")
	s.True(ok)
	s.Equal("alice", account)

	s.Equal("Header:heartbeat:alice:client", BuildHeartbeatHeader("alice"))

	for _, bad := range []string{
		"Header:heartbeat::client",
		"Header:heartbeat:alice",
		"Header:login",
		"heartbeat:alice:client",
	} {
		_, ok := ParseHeartbeatHeader(bad)
		s.False(ok, bad)
	}
}

func (s *ProtocolSuite) TestParsePrefixed() {
	val, ok := ParsePrefixed("username:alice", UsernamePrefix)
	s.True(ok)
	s.Equal("alice", val)

	_, ok = ParsePrefixed("password:x", UsernamePrefix)
	s.False(ok)
}

func (s *ProtocolSuite) TestLoginEcho() {
	s.Equal("/login alice secret", BuildLoginEcho("alice", "secret"))
}

func (s *ProtocolSuite) TestParseHallCommand() {
	cmd, err := ParseHallCommand("hall_command:/list")
	s.NoError(err)
	s.Equal(CmdList, cmd.Name)

	cmd, err = ParseHallCommand("hall_command:/exit")
	s.NoError(err)
	s.Equal(CmdExit, cmd.Name)

	cmd, err = ParseHallCommand("hall_command:/enter 3")
	s.NoError(err)
	s.Equal(CmdEnter, cmd.Name)
	s.Equal(3, cmd.Arg)

	// 命令与参数之间允许多个空格。
	cmd, err = ParseHallCommand("hall_command:/enter   7")
	s.NoError(err)
	s.Equal(7, cmd.Arg)

	for _, bad := range []string{
		"/list",
		"hall_command:",
		"hall_command:/fly",
		"hall_command:/enter",
		"hall_command:/enter x",
		"hall_command:/enter 1 2",
	} {
		_, err := ParseHallCommand(bad)
		s.ErrorIs(err, merr.ErrCommandUnrecognized, bad)
	}
}

func (s *ProtocolSuite) TestRoomsStatus() {
	line := BuildRoomsStatus([]int{0, 1, 2, 0})
	s.Equal("3001 4 0 1 2 0", line)

	occ, err := ParseRoomsStatus(line)
	s.NoError(err)
	s.Equal([]int{0, 1, 2, 0}, occ)

	for _, bad := range []string{
		"3001",
		"3001 2 0",
		"3001 x 0",
		"3002 1 0",
		"3001 1 y",
	} {
		_, err := ParseRoomsStatus(bad)
		s.Error(err, bad)
	}
}

func (s *ProtocolSuite) TestParseGuess() {
	for _, input := range []string{"true", "TRUE", "True", " true "} {
		guess, err := ParseGuess(input)
		s.NoError(err, input)
		s.True(guess, input)
	}
	for _, input := range []string{"false", "FALSE", "False"} {
		guess, err := ParseGuess(input)
		s.NoError(err, input)
		s.False(guess, input)
	}

	_, err := ParseGuess("maybe")
	s.ErrorIs(err, merr.ErrGuessMalformed)
	_, err = ParseGuess("")
	s.ErrorIs(err, merr.ErrGuessMalformed)
}

func (s *ProtocolSuite) TestStatusCode() {
	s.Equal("3011", StatusCode(StatusWait))
	s.Equal("1001", StatusCode(StatusAuthSuccess))
	s.Equal("", StatusCode("ack"))
	s.Equal("", StatusCode(""))
}

func (s *ProtocolSuite) TestStatusFor() {
	s.Equal(StatusRoomFull, StatusFor(merr.WrapErrRoomFull(0)))
	s.Equal(StatusAuthFailed, StatusFor(merr.WrapErrAuthenticationFailed("alice")))
	s.Equal(StatusAuthFailed, StatusFor(merr.WrapErrPlayerDuplicated("alice")))
	s.Equal(StatusUnrecognized, StatusFor(merr.WrapErrRoomIndexInvalid(99, 10)))
	s.Equal(StatusUnrecognized, StatusFor(merr.WrapErrCommandUnrecognized("x")))
}

func TestProtocol(t *testing.T) {
	suite.Run(t, new(ProtocolSuite))
}
