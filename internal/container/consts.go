package container

// CleanupLabelKey tags every resource (container, volume, network) created
// for a sandbox, so cleanup can find and remove exactly the resources
// belonging to a specific sandbox instance.
const CleanupLabelKey = "nodebox.sandbox"
