package util

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// launcher 打开 URL 的一种方式
type launcher struct {
	name string
	args []string
}

// browserLaunchers 按优先级返回当前系统可用的打开方式
// Windows 使用 rundll32 调用 url.dll（Windows 7 上比 cmd /c start 稳定），失败后用 explorer
func browserLaunchers(goos string) []launcher {
	switch goos {
	case "windows":
		return []launcher{
			{name: "rundll32", args: []string{"url.dll,FileProtocolHandler"}},
			{name: "explorer"},
		}
	case "darwin":
		return []launcher{{name: "open"}}
	default:
		return []launcher{
			{name: "xdg-open"},
			{name: "sensible-browser"},
			{name: "google-chrome"},
			{name: "firefox"},
			{name: "chromium-browser"},
		}
	}
}

// OpenBrowserWithFallback 依次尝试各打开方式，全部失败时返回最后一个错误
func OpenBrowserWithFallback(url string) error {
	return openWith(browserLaunchers(runtime.GOOS), url, func(name string, args ...string) error {
		return exec.Command(name, args...).Start()
	})
}

func openWith(launchers []launcher, url string, start func(name string, args ...string) error) error {
	if len(launchers) == 0 {
		return errors.New("no browser launcher for this platform")
	}
	var err error
	for _, l := range launchers {
		args := append(append([]string(nil), l.args...), url)
		if err = start(l.name, args...); err == nil {
			return nil
		}
	}
	return fmt.Errorf("open browser: %w", err)
}

// LocalURL 本机访问地址
func LocalURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}
