package icongen

// iconOS is the only target whose executables carry an icon resource.
const iconOS = "windows"

// NeedsIcon reports whether binaries built for targetOS embed an icon.
func NeedsIcon(targetOS string) bool {
	return targetOS == iconOS
}
