package demo

import (
	"github.com/go-lynx/lynx-di/app/container"
	"github.com/go-lynx/lynx-di/app/factory"
)

// CommonService is a host bean shared with the plugins.
type CommonService struct {
	Region string
}

// RegisterHostBeans fills the host container.
func RegisterHostBeans(c *container.Container) error {
	return c.RegisterSingleton("commonService", &CommonService{Region: "lynx"})
}

// HostReport is a host extension; it is wired with the host beans on publish.
type HostReport struct {
	Common *CommonService `inject:""`
}

// RegisterHostExtensions registers the host extension types.
func RegisterHostExtensions(reg *factory.TypeRegistry) error {
	_, err := reg.Register("HostReport", func() *HostReport { return &HostReport{} })
	return err
}
