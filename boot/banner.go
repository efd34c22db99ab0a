package boot

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/go-lynx/lynx-di/app/conf"
)

// Embedded banner file for application startup
//
//go:embed banner.txt
var bannerFS embed.FS

// LocalBannerPath overrides the embedded banner when the file exists.
const LocalBannerPath = "configs/banner.txt"

// printBanner writes the startup banner unless lynx.application.close_banner is set.
// A local banner file takes precedence over the embedded one.
func printBanner(w io.Writer, app conf.Application, localPath string) error {
	if app.CloseBanner {
		return nil
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		if data, err = fs.ReadFile(bannerFS, "banner.txt"); err != nil {
			return fmt.Errorf("failed to read banner: %w", err)
		}
	}
	_, err = fmt.Fprintf(w, "%s\n%s %s\n\n", data, app.Name, app.Version)
	return err
}
