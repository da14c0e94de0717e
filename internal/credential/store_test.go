package credential

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

type StoreSuite struct {
	suite.Suite
}

func (s *StoreSuite) writeFile(content string) string {
	path := filepath.Join(s.T().TempDir(), "credentials.txt")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *StoreSuite) TestLoadAndCheck() {
	path := s.writeFile("alice:secret1\nbob:secret2\n")

	store, err := Load(path)
	s.Require().NoError(err)
	s.Equal(2, store.Count())

	s.True(store.Check("alice", "secret1"))
	s.True(store.Check("bob", "secret2"))
	s.False(store.Check("alice", "wrong"))
	s.False(store.Check("ghost", "secret1"))
}

func (s *StoreSuite) TestBlankLinesIgnored() {
	path := s.writeFile("\nalice:secret1\n\n  \nbob:secret2\n")

	store, err := Load(path)
	s.Require().NoError(err)
	s.Equal(2, store.Count())
}

func (s *StoreSuite) TestSecretMayContainColon() {
	// 仅首个冒号作为分隔符，口令自身允许包含冒号。
	path := s.writeFile("alice:pa:ss\n")

	store, err := Load(path)
	s.Require().NoError(err)
	s.True(store.Check("alice", "pa:ss"))
}

func (s *StoreSuite) TestFileNotFound() {
	_, err := Load(filepath.Join(s.T().TempDir(), "nonexistent.txt"))
	s.ErrorIs(err, merr.ErrCredentialFileNotFound)
}

func (s *StoreSuite) TestMalformedLine() {
	_, err := Load(s.writeFile("alice:secret1\nno-colon-here\n"))
	s.ErrorIs(err, merr.ErrCredentialMalformed)

	_, err = Load(s.writeFile(":empty-account\n"))
	s.ErrorIs(err, merr.ErrCredentialMalformed)
}

func TestStore(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
