//go:build windows

package wsearch

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// QueryService reports the WSearch service state. It opens the service
// control manager with query rights only, so it works without elevation.
func QueryService() (ServiceStatus, error) {
	scm, err := windows.OpenSCManager(nil, nil, windows.SC_MANAGER_CONNECT)
	if err != nil {
		return ServiceStatus{}, dserrors.PlatformError(dserrors.ErrCodeProviderUnavailable,
			"cannot connect to the service control manager", err)
	}
	defer windows.CloseServiceHandle(scm)

	name, err := windows.UTF16PtrFromString(ServiceName)
	if err != nil {
		return ServiceStatus{}, dserrors.InternalError("invalid service name", err)
	}

	h, err := windows.OpenService(scm, name, windows.SERVICE_QUERY_STATUS|windows.SERVICE_QUERY_CONFIG)
	if err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			return ServiceStatus{Installed: false, State: "not installed"}, nil
		}
		return ServiceStatus{}, dserrors.PlatformError(dserrors.ErrCodeProviderUnavailable,
			"cannot open service "+ServiceName, err)
	}
	s := &mgr.Service{Name: ServiceName, Handle: h}
	defer s.Close()

	st, err := s.Query()
	if err != nil {
		return ServiceStatus{}, dserrors.PlatformError(dserrors.ErrCodeProviderUnavailable,
			"cannot query service "+ServiceName, err)
	}

	status := ServiceStatus{Installed: true, State: serviceStateName(st.State)}
	if cfg, err := s.Config(); err == nil {
		status.StartType = startTypeName(cfg.StartType)
	}
	return status, nil
}

func serviceStateName(s svc.State) string {
	switch s {
	case svc.Stopped:
		return "stopped"
	case svc.StartPending:
		return "start pending"
	case svc.StopPending:
		return "stop pending"
	case svc.Running:
		return "running"
	case svc.ContinuePending:
		return "continue pending"
	case svc.PausePending:
		return "pause pending"
	case svc.Paused:
		return "paused"
	default:
		return fmt.Sprintf("unknown (%d)", s)
	}
}

func startTypeName(t uint32) string {
	switch t {
	case mgr.StartAutomatic:
		return "automatic"
	case mgr.StartManual:
		return "manual"
	case mgr.StartDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("other (%d)", t)
	}
}
