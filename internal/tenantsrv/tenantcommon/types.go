package tenantcommon

const ServerVersion = "0.3.1"
const ApiVersion = "1.0"
