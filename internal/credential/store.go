// Package credential 实现静态凭据文件的加载与校验。
//
// 凭据文件为行式文本，每行一条 "account:secret" 记录，进程启动时
// 一次性加载，此后只读，不支持热更新。
package credential

import (
	"bufio"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

// Store 保存账号到口令的只读映射。
type Store struct {
	accounts map[string]string
}

// Load 从给定路径加载凭据文件。
//
// 边界情况：
//   - 文件不存在返回 ErrCredentialFileNotFound；
//   - 空行与行首尾空白被忽略；
//   - 缺失冒号或账号为空的行返回 ErrCredentialMalformed（带行号）。
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, merr.WrapErrCredentialFileNotFound(path)
		}
		return nil, errors.Wrapf(err, "credential: open %s failed", path)
	}
	defer f.Close()

	accounts := make(map[string]string)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		account, secret, found := strings.Cut(line, ":")
		if !found || account == "" {
			return nil, merr.WrapErrCredentialMalformed(path, lineNo)
		}
		accounts[account] = secret
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "credential: read %s failed", path)
	}

	return &Store{accounts: accounts}, nil
}

// Check 校验账号与口令是否匹配。
func (s *Store) Check(account, secret string) bool {
	stored, ok := s.accounts[account]
	return ok && stored == secret
}

// Count 返回已加载的账号数量。
func (s *Store) Count() int {
	return len(s.accounts)
}
