// Package types defines shared application data types.
package types

// ExitCode represents the application's exit codes.
type ExitCode int

const (
	// ExitSuccess - Execution completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGenericError - Unspecified generic error.
	ExitGenericError ExitCode = 1

	// ExitConfigError - Configuration error (missing or invalid settings).
	ExitConfigError ExitCode = 2

	// ExitAuthError - Controller login failed or returned no access token.
	ExitAuthError ExitCode = 3

	// ExitAPIError - Controller API returned a non-success status or bad body.
	ExitAPIError ExitCode = 4

	// ExitFileError - Cannot write the backup file or read the restore file.
	ExitFileError ExitCode = 5

	// ExitParseError - Restore file is not a valid JSON document.
	ExitParseError ExitCode = 6

	// ExitEncryptionError - Snapshot encryption or decryption failed.
	ExitEncryptionError ExitCode = 7

	// ExitPanicError - Unhandled panic caught.
	ExitPanicError ExitCode = 13
)

// String returns a human-readable description of the exit code.
func (e ExitCode) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitGenericError:
		return "generic error"
	case ExitConfigError:
		return "configuration error"
	case ExitAuthError:
		return "authentication error"
	case ExitAPIError:
		return "api error"
	case ExitFileError:
		return "file error"
	case ExitParseError:
		return "parse error"
	case ExitEncryptionError:
		return "encryption error"
	case ExitPanicError:
		return "panic error"
	default:
		return "unknown error"
	}
}

// Int returns the exit code as an integer.
func (e ExitCode) Int() int {
	return int(e)
}
