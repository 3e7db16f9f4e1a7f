// SPDX-License-Identifier: MPL-2.0

package environment

import "fmt"

// Application update lifecycle states.
const (
	AppWaitingCheckingUpdating AppStatus = iota
	AppCheckingInProgress
	AppActualVersion
	AppActualWithWarning
	AppNeedInstall
	AppCanUpdate
	AppNeedUpdate
	AppInstallingInProgress
	AppUpdatingInProgress
	AppErrorDuringChecking
	AppErrorDuringInstalling
	AppErrorDuringUpdating
)

// AppStatus is the coarse update status of the application itself.
type AppStatus int

// String returns a human-readable description.
func (s AppStatus) String() string {
	switch s {
	case AppWaitingCheckingUpdating:
		return "waiting"
	case AppCheckingInProgress:
		return "checking"
	case AppActualVersion:
		return "up to date"
	case AppActualWithWarning:
		return "up to date with warnings"
	case AppNeedInstall:
		return "needs install"
	case AppCanUpdate:
		return "update available"
	case AppNeedUpdate:
		return "update required"
	case AppInstallingInProgress:
		return "installing"
	case AppUpdatingInProgress:
		return "updating"
	case AppErrorDuringChecking:
		return "error during check"
	case AppErrorDuringInstalling:
		return "error during install"
	case AppErrorDuringUpdating:
		return "error during update"
	}
	return fmt.Sprintf("AppStatus(%d)", int(s))
}

// needsAction reports whether the status asks the operator to act.
func (s AppStatus) needsAction() bool {
	switch s {
	case AppNeedInstall, AppNeedUpdate, AppErrorDuringChecking, AppErrorDuringUpdating, AppErrorDuringInstalling:
		return true
	}
	return false
}

// isError reports whether the status is a failed check or update.
func (s AppStatus) isError() bool {
	return s == AppErrorDuringChecking || s == AppErrorDuringUpdating
}
