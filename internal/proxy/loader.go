package proxy

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadFile reads a proxy list, one endpoint per line. Blank lines and lines
// starting with # are ignored. A missing file is not an error: the harvester
// runs proxyless in that case.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("no proxy file, running without proxies", zap.String("path", path))
			return nil, nil
		}
		return nil, eris.Wrapf(err, "proxy: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var proxies []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "proxy: read %s", path)
	}

	zap.L().Info("loaded proxies", zap.Int("count", len(proxies)), zap.String("path", path))
	return proxies, nil
}
