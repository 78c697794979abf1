package imports

import (
	// Conversion tools - always available
	_ "github.com/devtoolshub/devtools-hub/internal/tools/autoconvert"
	_ "github.com/devtoolshub/devtools-hub/internal/tools/base64codec"
	_ "github.com/devtoolshub/devtools-hub/internal/tools/jsonformat"
	_ "github.com/devtoolshub/devtools-hub/internal/tools/jwttoken"
	_ "github.com/devtoolshub/devtools-hub/internal/tools/morsecode"
	_ "github.com/devtoolshub/devtools-hub/internal/tools/phpserialize"
	_ "github.com/devtoolshub/devtools-hub/internal/tools/qrcode"
	_ "github.com/devtoolshub/devtools-hub/internal/tools/utilities/toolhelp"
	_ "github.com/devtoolshub/devtools-hub/internal/tools/xmlconvert"

	// Requires ENABLE_ADDITIONAL_TOOLS=conversion_history
	_ "github.com/devtoolshub/devtools-hub/internal/tools/conversionhistory"
)
